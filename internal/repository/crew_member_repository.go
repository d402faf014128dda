package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// CrewMemberRepository persists memberships keyed by (crew, identity).
type CrewMemberRepository interface {
	Get(ctx context.Context, crewID, identityID string) (*domain.CrewMember, error)
	Insert(ctx context.Context, member *domain.CrewMember) error
	// Update returns nil without error when no row matched.
	Update(ctx context.Context, crewID, identityID string, patch domain.CrewMemberPatch) (*domain.CrewMember, error)
	Delete(ctx context.Context, crewID, identityID string) error
	ListByCrew(ctx context.Context, crewID string) ([]domain.CrewMember, error)
	ListByIdentity(ctx context.Context, organizationID, identityID string) ([]domain.CrewMember, error)
}

const memberColumns = `crew_id, identity_id, organization_id, name, icon, access, created_at, updated_at`

type crewMemberRepository struct {
	pool *pgxpool.Pool
}

// NewCrewMemberRepository constructs repository.
func NewCrewMemberRepository(pool *pgxpool.Pool) CrewMemberRepository {
	return &crewMemberRepository{pool: pool}
}

func (r *crewMemberRepository) Get(ctx context.Context, crewID, identityID string) (*domain.CrewMember, error) {
	query := `SELECT ` + memberColumns + ` FROM crew_members WHERE crew_id=$1 AND identity_id=$2`
	return scanMember(r.pool.QueryRow(ctx, query, crewID, identityID))
}

func (r *crewMemberRepository) Insert(ctx context.Context, member *domain.CrewMember) error {
	const query = `
        INSERT INTO crew_members (crew_id, identity_id, organization_id, name, icon, access)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		member.CrewID,
		member.IdentityID,
		member.OrganizationID,
		member.Name,
		member.Icon,
		member.Access,
	).Scan(&member.CreatedAt, &member.UpdatedAt)
}

func (r *crewMemberRepository) Update(ctx context.Context, crewID, identityID string, patch domain.CrewMemberPatch) (*domain.CrewMember, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}

	if patch.Access != nil {
		args = append(args, *patch.Access)
		sets = append(sets, fmt.Sprintf("access=$%d", len(args)))
	}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	if patch.Icon != nil {
		args = append(args, *patch.Icon)
		sets = append(sets, fmt.Sprintf("icon=$%d", len(args)))
	}
	args = append(args, crewID, identityID)

	query := fmt.Sprintf(`UPDATE crew_members SET %s WHERE crew_id=$%d AND identity_id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), memberColumns)

	member, err := scanMember(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

func (r *crewMemberRepository) Delete(ctx context.Context, crewID, identityID string) error {
	const query = `DELETE FROM crew_members WHERE crew_id=$1 AND identity_id=$2`
	_, err := r.pool.Exec(ctx, query, crewID, identityID)
	return err
}

func (r *crewMemberRepository) ListByCrew(ctx context.Context, crewID string) ([]domain.CrewMember, error) {
	query := `SELECT ` + memberColumns + ` FROM crew_members WHERE crew_id=$1 ORDER BY access ASC, created_at ASC`
	return r.list(ctx, query, crewID)
}

func (r *crewMemberRepository) ListByIdentity(ctx context.Context, organizationID, identityID string) ([]domain.CrewMember, error) {
	query := `SELECT ` + memberColumns + ` FROM crew_members WHERE organization_id=$1 AND identity_id=$2`
	return r.list(ctx, query, organizationID, identityID)
}

func (r *crewMemberRepository) list(ctx context.Context, query string, args ...any) ([]domain.CrewMember, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CrewMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *member)
	}
	return result, rows.Err()
}

func scanMember(row pgx.Row) (*domain.CrewMember, error) {
	var member domain.CrewMember
	if err := row.Scan(
		&member.CrewID,
		&member.IdentityID,
		&member.OrganizationID,
		&member.Name,
		&member.Icon,
		&member.Access,
		&member.CreatedAt,
		&member.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &member, nil
}
