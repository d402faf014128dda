package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccessRank orders crew privileges. Lower values are more privileged.
type AccessRank int

const (
	AccessOwner AccessRank = iota
	AccessSubscriber
	AccessMember
)

var accessLabels = map[AccessRank]string{
	AccessOwner:      "owner",
	AccessSubscriber: "subscriber",
	AccessMember:     "member",
}

// Valid reports whether a is a known rank.
func (a AccessRank) Valid() bool {
	_, ok := accessLabels[a]
	return ok
}

// MorePrivilegedThan reports whether a grants strictly more privilege than other.
func (a AccessRank) MorePrivilegedThan(other AccessRank) bool {
	return CompareAccess(a, other) > 0
}

// CompareAccess returns 1 when a is more privileged than b, -1 when less, 0 when equal.
func CompareAccess(a, b AccessRank) int {
	switch {
	case a < b:
		return 1
	case a > b:
		return -1
	default:
		return 0
	}
}

func (a AccessRank) String() string {
	if label, ok := accessLabels[a]; ok {
		return label
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// ParseAccessRank accepts the lowercase or uppercase label of a rank.
func ParseAccessRank(value string) (AccessRank, error) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for rank, label := range accessLabels {
		if label == needle {
			return rank, nil
		}
	}
	return 0, fmt.Errorf("unknown access rank %q", value)
}

// CrewMember binds an identity to a crew. (CrewID, IdentityID) is unique.
type CrewMember struct {
	CrewID         string
	IdentityID     string
	OrganizationID string
	Name           string
	Icon           string
	Access         AccessRank
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CrewMemberPatch is a partial update of a membership row.
type CrewMemberPatch struct {
	Access *AccessRank
	Name   *string
	Icon   *string
}

// Empty reports whether the patch changes nothing.
func (p CrewMemberPatch) Empty() bool {
	return p.Access == nil && p.Name == nil && p.Icon == nil
}
