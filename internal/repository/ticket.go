package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// TicketRepository handles persistence for tickets.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// CreateBatch inserts tickets in one round trip. Call it inside WithTx so the
// tickets commit together with their transaction's status change.
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []model.Ticket) error {
	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets (id, transaction_id, user_id, status, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.TransactionID, t.UserID, t.Status, t.CreatedAt,
		)
	}

	br := db(ctx, r.pool).SendBatch(ctx, batch)
	for range tickets {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert ticket: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert tickets: %w", err)
	}
	return nil
}

// CountByTransaction returns how many tickets a transaction has produced.
func (r *TicketRepository) CountByTransaction(ctx context.Context, transactionID string) (int, error) {
	var n int
	if err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE transaction_id = $1`, transactionID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

const ticketDetailsSelect = `
SELECT k.id, k.transaction_id, k.user_id, k.status, k.validated_at, k.created_at,
       u.email, e.id, e.name, e.venue, e.starts_at
FROM %s k
JOIN transactions t ON t.id = k.transaction_id
JOIN events e ON e.id = t.event_id
JOIN users u ON u.id = k.user_id`

// MarkUsed flips an issued ticket to used in a single statement and returns
// its details. ok is false when the ticket was not in the issued state; the
// row lock taken by the UPDATE makes concurrent callers see that outcome.
func (r *TicketRepository) MarkUsed(ctx context.Context, id string, at time.Time) (details *model.TicketDetails, ok bool, err error) {
	query := `
WITH updated AS (
	UPDATE tickets
	SET status = 'used', validated_at = $2
	WHERE id = $1 AND status = 'issued'
	RETURNING id, transaction_id, user_id, status, validated_at, created_at
)` + fmt.Sprintf(ticketDetailsSelect, "updated")

	details, err = scanTicketDetails(db(ctx, r.pool).QueryRow(ctx, query, id, at))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mark ticket used: %w", err)
	}
	return details, true, nil
}

// GetDetails returns a ticket with its event and owner, or model.ErrNotFound.
func (r *TicketRepository) GetDetails(ctx context.Context, id string) (*model.TicketDetails, error) {
	query := fmt.Sprintf(ticketDetailsSelect, "tickets") + ` WHERE k.id = $1`
	details, err := scanTicketDetails(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return details, nil
}

// Void moves an issued ticket to void. It reports false when the ticket was
// not issued.
func (r *TicketRepository) Void(ctx context.Context, id string) (bool, error) {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE tickets SET status = 'void' WHERE id = $1 AND status = 'issued'`, id,
	)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("void ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByOwnerEmail returns the tickets owned by email, newest first. The
// owner filter is part of the query so callers can never read other users'
// tickets.
func (r *TicketRepository) ListByOwnerEmail(ctx context.Context, email string) ([]model.OwnedTicket, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
SELECT k.id, k.transaction_id, k.user_id, k.status, k.validated_at, k.created_at,
       t.quantity, t.total_amount, t.created_at,
       e.id, e.name, e.venue, e.starts_at
FROM tickets k
JOIN users u ON u.id = k.user_id
JOIN transactions t ON t.id = k.transaction_id
JOIN events e ON e.id = t.event_id
WHERE u.email = $1
ORDER BY k.created_at DESC, k.id`, email)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.OwnedTicket
	for rows.Next() {
		var o model.OwnedTicket
		if err := rows.Scan(
			&o.ID, &o.TransactionID, &o.UserID, &o.Status, &o.ValidatedAt, &o.CreatedAt,
			&o.Transaction.Quantity, &o.Transaction.TotalAmount, &o.Transaction.CreatedAt,
			&o.Event.ID, &o.Event.Name, &o.Event.Venue, &o.Event.StartsAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, o)
	}
	return tickets, rows.Err()
}

func scanTicketDetails(row pgx.Row) (*model.TicketDetails, error) {
	var d model.TicketDetails
	err := row.Scan(&d.ID, &d.TransactionID, &d.UserID, &d.Status, &d.ValidatedAt, &d.CreatedAt,
		&d.OwnerEmail, &d.Event.ID, &d.Event.Name, &d.Event.Venue, &d.Event.StartsAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
