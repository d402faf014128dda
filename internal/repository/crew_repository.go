package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// CrewRepository manages persistence for crews.
type CrewRepository interface {
	Create(ctx context.Context, crew *domain.Crew) error
	Update(ctx context.Context, crew *domain.Crew) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.Crew, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Crew, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

const crewColumns = `id, organization_id, team_id, name, short_name, role_id, is_secure_only, has_move_prompt, created_at, deleted_at`

type crewRepository struct {
	pool *pgxpool.Pool
}

// NewCrewRepository constructs repository.
func NewCrewRepository(pool *pgxpool.Pool) CrewRepository {
	return &crewRepository{pool: pool}
}

func (r *crewRepository) Create(ctx context.Context, crew *domain.Crew) error {
	const query = `
        INSERT INTO crews (id, organization_id, team_id, name, short_name, role_id, is_secure_only, has_move_prompt)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		crew.ID,
		crew.OrganizationID,
		crew.TeamID,
		crew.Name,
		crew.ShortName,
		crew.RoleID,
		crew.IsSecureOnly,
		crew.HasMovePrompt,
	).Scan(&crew.CreatedAt)
}

func (r *crewRepository) Update(ctx context.Context, crew *domain.Crew) error {
	const query = `
        UPDATE crews SET name=$1, short_name=$2, role_id=$3, is_secure_only=$4, has_move_prompt=$5
        WHERE id=$6 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		crew.Name,
		crew.ShortName,
		crew.RoleID,
		crew.IsSecureOnly,
		crew.HasMovePrompt,
		crew.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *crewRepository) GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.Crew, error) {
	query := `SELECT ` + crewColumns + ` FROM crews WHERE id=$1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return scanCrew(r.pool.QueryRow(ctx, query, id))
}

func (r *crewRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.Crew, error) {
	query := `SELECT ` + crewColumns + `
        FROM crews WHERE organization_id=$1 AND deleted_at IS NULL ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Crew
	for rows.Next() {
		crew, err := scanCrew(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *crew)
	}
	return result, rows.Err()
}

func (r *crewRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE crews SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCrew(row pgx.Row) (*domain.Crew, error) {
	var crew domain.Crew
	if err := row.Scan(
		&crew.ID,
		&crew.OrganizationID,
		&crew.TeamID,
		&crew.Name,
		&crew.ShortName,
		&crew.RoleID,
		&crew.IsSecureOnly,
		&crew.HasMovePrompt,
		&crew.CreatedAt,
		&crew.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &crew, nil
}
