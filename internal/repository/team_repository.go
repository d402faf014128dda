package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// TeamRepository manages persistence for teams and their tag templates.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	ListTags(ctx context.Context, teamID string) ([]domain.TeamTag, error)
	UpsertTag(ctx context.Context, tag *domain.TeamTag) error
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (id, organization_id, name, forum_id, role_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		team.ID,
		team.OrganizationID,
		team.Name,
		team.ForumID,
		team.RoleID,
	).Scan(&team.CreatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `
        SELECT id, organization_id, name, forum_id, role_id, created_at
        FROM teams WHERE id=$1`
	var team domain.Team
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.OrganizationID,
		&team.Name,
		&team.ForumID,
		&team.RoleID,
		&team.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) ListTags(ctx context.Context, teamID string) ([]domain.TeamTag, error) {
	const query = `
        SELECT team_id, name, external_id, kind, created_at
        FROM team_tags WHERE team_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TeamTag
	for rows.Next() {
		var tag domain.TeamTag
		if err := rows.Scan(&tag.TeamID, &tag.Name, &tag.ExternalID, &tag.Kind, &tag.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}

func (r *teamRepository) UpsertTag(ctx context.Context, tag *domain.TeamTag) error {
	const query = `
        INSERT INTO team_tags (team_id, name, external_id, kind)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (team_id, name) DO UPDATE SET external_id=EXCLUDED.external_id, kind=EXCLUDED.kind
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, tag.TeamID, tag.Name, tag.ExternalID, tag.Kind).Scan(&tag.CreatedAt)
}
