package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Reads that take
// includeDeleted also return soft-deleted (closed) tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, threadID string, includeDeleted bool) (*domain.Ticket, error)
	ListActiveByCrew(ctx context.Context, crewID string) ([]domain.Ticket, error)
	// UpdateStatus returns nil without error when no row was affected.
	UpdateStatus(ctx context.Context, threadID string, status domain.TicketStatus, updatedBy string, at time.Time) (*domain.Ticket, error)
	// SoftDelete returns nil without error when the ticket is missing or already closed.
	SoftDelete(ctx context.Context, threadID, updatedBy string, at time.Time) (*domain.Ticket, error)
}

const ticketColumns = `thread_id, organization_id, crew_id, previous_thread_id, name, content, status,
               created_by, updated_by, created_at, updated_at, deleted_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (thread_id, organization_id, crew_id, previous_thread_id, name, content, status, created_by, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ThreadID,
		ticket.OrganizationID,
		ticket.CrewID,
		ticket.PreviousThreadID,
		ticket.Name,
		ticket.Content,
		ticket.Status,
		ticket.CreatedBy,
		ticket.UpdatedBy,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, threadID string, includeDeleted bool) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE thread_id=$1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return scanTicket(r.pool.QueryRow(ctx, query, threadID))
}

func (r *ticketRepository) ListActiveByCrew(ctx context.Context, crewID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE crew_id=$1 AND deleted_at IS NULL ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, threadID string, status domain.TicketStatus, updatedBy string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, updated_by=$2, updated_at=$3
        WHERE thread_id=$4
        RETURNING ` + ticketColumns
	return noRowsAsNil(scanTicket(r.pool.QueryRow(ctx, query, status, updatedBy, at, threadID)))
}

func (r *ticketRepository) SoftDelete(ctx context.Context, threadID, updatedBy string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET deleted_at=$1, updated_at=$1, updated_by=$2
        WHERE thread_id=$3 AND deleted_at IS NULL
        RETURNING ` + ticketColumns
	return noRowsAsNil(scanTicket(r.pool.QueryRow(ctx, query, at, updatedBy, threadID)))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ThreadID,
		&ticket.OrganizationID,
		&ticket.CrewID,
		&ticket.PreviousThreadID,
		&ticket.Name,
		&ticket.Content,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.UpdatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func noRowsAsNil(ticket *domain.Ticket, err error) (*domain.Ticket, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}
