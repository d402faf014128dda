package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// AdminChecker reports whether an identity administers an organization.
type AdminChecker interface {
	IsIdentityAdmin(ctx context.Context, organizationID, identityID string) (bool, error)
}

// RequirePrincipal ensures the caller is authenticated.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// OrganizationResolver names the organization that owns the resource a
// request targets.
type OrganizationResolver func(c *fiber.Ctx) (string, error)

// EnsureOrganization rejects principals acting outside the organization
// their token was issued for.
func EnsureOrganization(principal *Principal, organizationID string) error {
	if principal.OrganizationID == "" || principal.OrganizationID != organizationID {
		return apperrors.NewForbidden("This resource belongs to another organization")
	}
	return nil
}

// RequireAdmin ensures the caller administers the organization that owns
// the targeted resource. A nil resolver targets the token's organization.
func RequireAdmin(checker AdminChecker, organizationOf OrganizationResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		organizationID := principal.OrganizationID
		if organizationOf != nil {
			resolved, err := organizationOf(c)
			if err != nil {
				return err
			}
			organizationID = resolved
		}
		if organizationID == "" {
			return apperrors.NewForbidden("administrator required")
		}
		if err := EnsureOrganization(principal, organizationID); err != nil {
			return err
		}
		admin, err := checker.IsIdentityAdmin(c.UserContext(), organizationID, principal.IdentityID)
		if err != nil {
			return err
		}
		if !admin {
			return apperrors.NewForbidden("administrator required")
		}
		return c.Next()
	}
}
