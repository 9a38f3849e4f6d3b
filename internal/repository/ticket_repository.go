package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/meal-tickets/internal/domain"
	"github.com/spec-kit/meal-tickets/pkg/util/errorutil"
)

// TicketPredicate selects tickets by issue time, status and owner. Nil fields
// do not constrain; the issue range is inclusive on both ends.
type TicketPredicate struct {
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	Status     *domain.TicketStatus
	OwnerID    *string
}

// TicketStore encapsulates ticket persistence.
type TicketStore interface {
	Insert(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	// InsertBatch stores tickets in order. A store that cannot persist the
	// whole batch atomically reports partial success as *PartialBatchError.
	InsertBatch(ctx context.Context, tickets []domain.Ticket) ([]domain.Ticket, error)
	// FindMatching returns matching tickets oldest first, ties in insertion order.
	FindMatching(ctx context.Context, pred TicketPredicate) ([]domain.Ticket, error)
	// TryClaim moves the oldest ticket of ownerID in status from to status to
	// in one conditional write. A nil ticket means nothing qualified.
	TryClaim(ctx context.Context, ownerID string, from, to domain.TicketStatus, usedAt *time.Time) (*domain.Ticket, error)
	// Summarize aggregates the matching population.
	Summarize(ctx context.Context, pred TicketPredicate) (domain.TicketStats, error)
}

// ValidateTransition checks a claim request against the ticket lifecycle.
func ValidateTransition(from, to domain.TicketStatus, usedAt *time.Time) error {
	if !domain.CanTransition(from, to) {
		return errorutil.Wrap(ErrInvalidTransition, fmt.Sprintf("%s -> %s", from, to))
	}
	if (to == domain.TicketStatusUsed) != (usedAt != nil) {
		return errorutil.Wrap(ErrInvalidTransition, fmt.Sprintf("used_at must be set only for %s", domain.TicketStatusUsed))
	}
	return nil
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres ticket store.
func NewTicketRepository(pool *pgxpool.Pool) TicketStore {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, price, status, issued_at, used_at`

const insertTicketQuery = `
        INSERT INTO tickets (owner_id, price, status, issued_at, used_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ` + ticketColumns

func (r *ticketRepository) Insert(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	stored, err := scanTicket(r.pool.QueryRow(ctx, insertTicketQuery, insertArgs(ticket)...))
	if err != nil {
		return domain.Ticket{}, mapInsertError(err)
	}
	return stored, nil
}

// InsertBatch pipelines the inserts. Postgres runs the pipeline as one
// implicit transaction, so a failure leaves nothing behind.
func (r *ticketRepository) InsertBatch(ctx context.Context, tickets []domain.Ticket) ([]domain.Ticket, error) {
	if len(tickets) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(insertTicketQuery, insertArgs(t)...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	stored := make([]domain.Ticket, 0, len(tickets))
	for range tickets {
		t, err := scanTicket(results.QueryRow())
		if err != nil {
			return nil, mapInsertError(err)
		}
		stored = append(stored, t)
	}
	if err := results.Close(); err != nil {
		return nil, errorutil.Wrap(err, "close ticket batch")
	}
	return stored, nil
}

func (r *ticketRepository) FindMatching(ctx context.Context, pred TicketPredicate) ([]domain.Ticket, error) {
	where, args, ok := buildWhere(pred)
	if !ok {
		return []domain.Ticket{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY issued_at ASC, seq ASC`, ticketColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errorutil.Wrap(err, "query tickets")
	}
	defer rows.Close()
	return scanTickets(rows)
}

// TryClaim locks the oldest candidate row, skipping rows held by concurrent
// claimers, and updates it in the same statement.
func (r *ticketRepository) TryClaim(ctx context.Context, ownerID string, from, to domain.TicketStatus, usedAt *time.Time) (*domain.Ticket, error) {
	if err := ValidateTransition(from, to, usedAt); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, nil
	}
	const query = `
        UPDATE tickets SET status=$3, used_at=$4
        WHERE id = (
            SELECT id FROM tickets
            WHERE owner_id=$1 AND status=$2
            ORDER BY issued_at ASC, seq ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        ) AND status=$2
        RETURNING ` + ticketColumns

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, ownerID, from, to, usedAt))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errorutil.Wrap(err, "claim ticket")
	}
	return &ticket, nil
}

func (r *ticketRepository) Summarize(ctx context.Context, pred TicketPredicate) (domain.TicketStats, error) {
	stats := domain.TicketStats{TotalRevenue: decimal.Zero}
	where, args, ok := buildWhere(pred)
	if !ok {
		return stats, nil
	}
	query := fmt.Sprintf(`
        SELECT COUNT(*),
               COALESCE(SUM(price) FILTER (WHERE status='%s'), 0),
               COUNT(*) FILTER (WHERE status='%s'),
               COUNT(*) FILTER (WHERE status='%s')
        FROM tickets WHERE %s`,
		domain.TicketStatusUsed, domain.TicketStatusAvailable, domain.TicketStatusUsed, where)

	var revenue pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalTickets,
		&revenue,
		&stats.AvailableCount,
		&stats.UsedCount,
	); err != nil {
		return domain.TicketStats{}, errorutil.Wrap(err, "summarize tickets")
	}
	stats.TotalRevenue = decimalFromNumeric(revenue)
	return stats, nil
}

// buildWhere renders pred as a WHERE clause. ok is false when pred can match
// nothing, e.g. an owner id that is not a uuid.
func buildWhere(pred TicketPredicate) (string, []any, bool) {
	clauses := []string{"1=1"}
	args := []any{}

	if pred.OwnerID != nil {
		if _, err := uuid.Parse(*pred.OwnerID); err != nil {
			return "", nil, false
		}
		args = append(args, *pred.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if pred.Status != nil {
		args = append(args, *pred.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if pred.IssuedFrom != nil {
		args = append(args, *pred.IssuedFrom)
		clauses = append(clauses, fmt.Sprintf("issued_at >= $%d", len(args)))
	}
	if pred.IssuedTo != nil {
		args = append(args, *pred.IssuedTo)
		clauses = append(clauses, fmt.Sprintf("issued_at <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args, true
}

func insertArgs(t domain.Ticket) []any {
	return []any{t.OwnerID, numericFromDecimal(t.Price), t.Status, t.IssuedAt, t.UsedAt}
}

func mapInsertError(err error) error {
	switch pgCode(err) {
	case pgForeignKeyViolation, pgInvalidTextRep:
		return errorutil.Wrap(ErrOwnerNotFound, "insert ticket")
	case pgNumericOutOfRange:
		return errorutil.Wrap(ErrPriceOutOfRange, "insert ticket")
	}
	return errorutil.Wrap(err, "insert ticket")
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		ticket domain.Ticket
		price  pgtype.Numeric
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&price,
		&ticket.Status,
		&ticket.IssuedAt,
		&ticket.UsedAt,
	); err != nil {
		return domain.Ticket{}, err
	}
	ticket.Price = decimalFromNumeric(price)
	ticket.IssuedAt = ticket.IssuedAt.UTC()
	if ticket.UsedAt != nil {
		used := ticket.UsedAt.UTC()
		ticket.UsedAt = &used
	}
	return ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, errorutil.Wrap(err, "scan ticket")
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.Wrap(err, "iterate tickets")
	}
	return result, nil
}
