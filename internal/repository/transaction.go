package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

const transactionColumns = `t.id, t.user_id, t.event_id, t.quantity, t.total_amount, t.status,
	COALESCE(t.payment_reference, ''), COALESCE(t.failure_reason, ''), t.settled_at, t.created_at`

// TransactionRepository handles persistence for purchase transactions.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// WithTx runs fn in a database transaction. Every repository called with the
// context passed to fn takes part in it.
func (r *TransactionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// Create inserts a pending transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO transactions (id, user_id, event_id, quantity, total_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.EventID, t.Quantity, t.TotalAmount.String(), t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// SetPaymentReference records the gateway reference for later reconciliation.
func (r *TransactionRepository) SetPaymentReference(ctx context.Context, id, reference string) error {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE transactions SET payment_reference = $2 WHERE id = $1`,
		id, reference,
	)
	if err != nil {
		return fmt.Errorf("set payment reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetForUpdate loads a transaction and locks its row until the surrounding
// transaction ends. Concurrent webhook deliveries for the same id queue here.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id string) (*model.Transaction, error) {
	return r.scanOne(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 FOR UPDATE`, id,
	))
}

// Settle moves a pending transaction to status. It reports false when the row
// was no longer pending.
func (r *TransactionRepository) Settle(ctx context.Context, id string, status model.TransactionStatus, reason, reference string, at time.Time) (bool, error) {
	tag, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE transactions
		 SET status = $2,
		     failure_reason = NULLIF($3, ''),
		     payment_reference = COALESCE(NULLIF($4, ''), payment_reference),
		     settled_at = $5
		 WHERE id = $1 AND status = 'pending'`,
		id, status, reason, reference, at,
	)
	if err != nil {
		return false, fmt.Errorf("settle transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetForOwner returns a transaction only if it belongs to the user with email.
func (r *TransactionRepository) GetForOwner(ctx context.Context, id, email string) (*model.Transaction, error) {
	return r.scanOne(db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.id = $1 AND u.email = $2`,
		id, email,
	))
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.EventID, &t.Quantity, &t.TotalAmount, &t.Status,
		&t.PaymentReference, &t.FailureReason, &t.SettledAt, &t.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}
