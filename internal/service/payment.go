package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/telemetry"
)

// PaymentService applies gateway notifications to transactions and issues
// tickets for approved payments.
type PaymentService struct {
	transactions TransactionStore
	tickets      TicketStore
	clock        clock.Clock
	log          *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(transactions TransactionStore, tickets TicketStore, clk clock.Clock, log *zap.Logger) *PaymentService {
	return &PaymentService{transactions: transactions, tickets: tickets, clock: clk, log: log}
}

// Confirm settles the transaction named by n. Only "approved" completes it;
// every other outcome fails it. The row is locked for the whole call, so
// repeated or concurrent deliveries observe the first settlement: a repeat
// that maps to the recorded status is a no-op and a contradicting one is a
// conflict. Tickets are inserted in the same database transaction as the
// status change.
func (s *PaymentService) Confirm(ctx context.Context, n model.PaymentNotification) (res *model.ConfirmationResult, err error) {
	n.TransactionID = strings.TrimSpace(n.TransactionID)
	n.Outcome = strings.ToLower(strings.TrimSpace(n.Outcome))

	ctx, span := telemetry.Start(ctx, "payment.confirm",
		attribute.String("transaction_id", n.TransactionID),
		attribute.String("outcome", n.Outcome),
	)
	defer func() {
		metrics.PaymentNotifications.WithLabelValues(outcomeLabel(n.Outcome), confirmResult(res, err)).Inc()
		telemetry.End(span, err)
	}()

	if n.TransactionID == "" {
		return nil, model.Validationf("transaction_id is required")
	}
	if n.Outcome == "" {
		return nil, model.Validationf("outcome is required")
	}
	if _, err := uuid.Parse(n.TransactionID); err != nil {
		return nil, model.NotFound("transaction")
	}

	target := model.TransactionFailed
	reason := n.Outcome
	if n.Outcome == model.OutcomeApproved {
		target = model.TransactionCompleted
		reason = ""
	}

	var recorded model.TransactionStatus
	err = s.transactions.WithTx(ctx, func(ctx context.Context) error {
		txn, err := s.transactions.GetForUpdate(ctx, n.TransactionID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NotFound("transaction")
			}
			return fmt.Errorf("lock transaction: %w", err)
		}
		recorded = txn.Status

		if txn.Status != model.TransactionPending {
			if txn.Status == target && txn.FailureReason == reason {
				res = &model.ConfirmationResult{Transaction: *txn}
				return nil
			}
			if txn.Status == model.TransactionFailed {
				return model.Conflictf("transaction %s already failed (%s)", txn.ID, txn.FailureReason)
			}
			return model.Conflictf("transaction %s is already %s", txn.ID, txn.Status)
		}

		now := s.clock.Now()
		settled, err := s.transactions.Settle(ctx, txn.ID, target, reason, n.Reference, now)
		if err != nil {
			return err
		}
		if !settled {
			return model.Conflictf("transaction %s was settled concurrently", txn.ID)
		}
		txn.Status = target
		txn.FailureReason = reason
		txn.SettledAt = &now
		if n.Reference != "" {
			txn.PaymentReference = n.Reference
		}

		res = &model.ConfirmationResult{Transaction: *txn, Applied: true}
		if target != model.TransactionCompleted {
			return nil
		}

		tickets := make([]model.Ticket, txn.Quantity)
		for i := range tickets {
			tickets[i] = model.Ticket{
				ID:            uuid.NewString(),
				TransactionID: txn.ID,
				UserID:        txn.UserID,
				Status:        model.TicketIssued,
				CreatedAt:     now,
			}
		}
		if err := s.tickets.CreateBatch(ctx, tickets); err != nil {
			return fmt.Errorf("issue tickets: %w", err)
		}
		res.Tickets = tickets
		return nil
	})
	if err != nil {
		res = nil
		if errors.Is(err, model.ErrConflict) {
			s.log.Error("conflicting payment notification ignored",
				zap.String("transaction_id", n.TransactionID),
				zap.String("recorded_status", string(recorded)),
				zap.String("outcome", n.Outcome),
			)
		}
		return nil, err
	}

	if res.Applied {
		metrics.TicketsIssued.Add(float64(len(res.Tickets)))
		s.log.Info("payment notification applied",
			zap.String("transaction_id", n.TransactionID),
			zap.String("status", string(res.Transaction.Status)),
			zap.Int("tickets_issued", len(res.Tickets)),
		)
	} else {
		s.log.Info("duplicate payment notification",
			zap.String("transaction_id", n.TransactionID),
			zap.String("status", string(res.Transaction.Status)),
		)
	}
	return res, nil
}

// outcomeLabel bounds metric cardinality to the outcomes gateways send.
func outcomeLabel(outcome string) string {
	switch outcome {
	case model.OutcomeApproved, "declined", "expired", "cancelled", "canceled", "error":
		return outcome
	default:
		return "other"
	}
}

func confirmResult(res *model.ConfirmationResult, err error) string {
	switch {
	case err == nil && res != nil && res.Applied:
		return "applied"
	case err == nil:
		return "duplicate"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
