// Package tags resolves canonical tag names to the external label ids of a team forum.
package tags

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// Source lists the tag templates of a team.
type Source interface {
	ListTags(ctx context.Context, teamID string) ([]domain.TeamTag, error)
}

// Cache stores resolved templates per team.
type Cache interface {
	Get(ctx context.Context, teamID string) ([]domain.TeamTag, bool, error)
	Set(ctx context.Context, teamID string, tags []domain.TeamTag, ttl time.Duration) error
	Delete(ctx context.Context, teamID string) error
}

// Resolver answers tag lookups. Concurrent misses for one team share a
// single source read. A nil cache disables caching.
type Resolver struct {
	source Source
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewResolver wires a resolver.
func NewResolver(source Source, cache Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		cache = nil
	}
	return &Resolver{source: source, cache: cache, ttl: ttl, logger: logger}
}

// TagMap returns the full mapping for a team.
func (r *Resolver) TagMap(ctx context.Context, teamID string) (Map, error) {
	templates, err := r.load(ctx, teamID)
	if err != nil {
		return Map{}, err
	}
	return NewMap(templates), nil
}

// ResolveLifecycleTag returns the label id for status, or false when the
// team has no mapping for it.
func (r *Resolver) ResolveLifecycleTag(ctx context.Context, teamID string, status domain.TicketStatus) (string, bool, error) {
	m, err := r.TagMap(ctx, teamID)
	if err != nil {
		return "", false, err
	}
	id, ok := m.Lifecycle(status)
	return id, ok, nil
}

// ResolveCrewTag returns the label id named after a crew short code.
func (r *Resolver) ResolveCrewTag(ctx context.Context, teamID, shortName string) (string, bool, error) {
	m, err := r.TagMap(ctx, teamID)
	if err != nil {
		return "", false, err
	}
	id, ok := m.Crew(shortName)
	return id, ok, nil
}

// DefaultTags returns the labels applied to every ticket of the team.
func (r *Resolver) DefaultTags(ctx context.Context, teamID string) ([]string, error) {
	m, err := r.TagMap(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return m.Defaults(), nil
}

// Invalidate drops the cached mapping of a team.
func (r *Resolver) Invalidate(ctx context.Context, teamID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, teamID)
}

func (r *Resolver) load(ctx context.Context, teamID string) ([]domain.TeamTag, error) {
	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, teamID)
		if err != nil {
			r.logger.Warn("tag cache read failed", zap.String("team_id", teamID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	v, err, _ := r.group.Do(teamID, func() (any, error) {
		templates, err := r.source.ListTags(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, teamID, templates, r.ttl); err != nil {
				r.logger.Warn("tag cache write failed", zap.String("team_id", teamID), zap.Error(err))
			}
		}
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.TeamTag), nil
}
