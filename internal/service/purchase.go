package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/payment"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/telemetry"
)

const defaultGatewayTimeout = 10 * time.Second

// PurchaseService turns a purchase request into a pending transaction and a
// payment-gateway redirect.
type PurchaseService struct {
	events       EventStore
	users        UserStore
	transactions TransactionStore
	gateway      payment.Gateway
	clock        clock.Clock
	timeout      time.Duration
	log          *zap.Logger
}

// NewPurchaseService constructs a PurchaseService. timeout bounds each
// gateway call.
func NewPurchaseService(
	events EventStore,
	users UserStore,
	transactions TransactionStore,
	gateway payment.Gateway,
	clk clock.Clock,
	timeout time.Duration,
	log *zap.Logger,
) *PurchaseService {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &PurchaseService{
		events:       events,
		users:        users,
		transactions: transactions,
		gateway:      gateway,
		clock:        clk,
		timeout:      timeout,
		log:          log,
	}
}

// InitiatePurchase validates the request, records a pending transaction priced
// at the current tier and asks the gateway for a checkout link. When the
// gateway fails the pending transaction is kept and a gateway error returned.
func (s *PurchaseService) InitiatePurchase(ctx context.Context, req model.PurchaseRequest) (res *model.PurchaseResult, err error) {
	ctx, span := telemetry.Start(ctx, "purchase.initiate", attribute.String("event_id", req.EventID))
	defer func() {
		metrics.PurchasesStarted.WithLabelValues(purchaseResult(err)).Inc()
		telemetry.End(span, err)
	}()

	req.Email = normalizeEmail(req.Email)
	req.EventID = strings.TrimSpace(req.EventID)
	if req.Email == "" {
		return nil, model.Validationf("email is required")
	}
	if !isValidEmail(req.Email) {
		return nil, model.Validationf("email is not a valid email address")
	}
	if req.Quantity < model.MinQuantity || req.Quantity > model.MaxQuantity {
		return nil, model.Validationf("quantity must be between %d and %d", model.MinQuantity, model.MaxQuantity)
	}
	if req.EventID == "" {
		return nil, model.Validationf("event_id is required")
	}

	event, err := loadEvent(ctx, s.events, req.EventID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ResolveByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve buyer: %w", err)
	}

	now := s.clock.Now()
	unitPrice := ResolvePrice(event, now)
	txn := &model.Transaction{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		EventID:     event.ID,
		Quantity:    req.Quantity,
		TotalAmount: Total(unitPrice, req.Quantity),
		Status:      model.TransactionPending,
		CreatedAt:   now,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	checkout, err := s.gateway.CreateCheckout(gctx, payment.CheckoutRequest{
		TransactionID: txn.ID,
		Email:         req.Email,
		EventName:     event.Name,
		Quantity:      txn.Quantity,
		UnitPrice:     unitPrice,
		Amount:        txn.TotalAmount,
	})
	if err != nil {
		s.log.Warn("payment gateway call failed; transaction left pending",
			zap.String("transaction_id", txn.ID),
			zap.Error(err),
		)
		return nil, model.Gateway(err)
	}

	if err := s.transactions.SetPaymentReference(ctx, txn.ID, checkout.Reference); err != nil {
		// The webhook carries the transaction id, so a missing reference
		// only affects reconciliation.
		s.log.Error("failed to store payment reference",
			zap.String("transaction_id", txn.ID),
			zap.String("reference", checkout.Reference),
			zap.Error(err),
		)
	}

	s.log.Info("purchase initiated",
		zap.String("transaction_id", txn.ID),
		zap.String("event_id", event.ID),
		zap.Int("quantity", txn.Quantity),
		zap.String("total_amount", txn.TotalAmount.String()),
	)
	return &model.PurchaseResult{PaymentLink: checkout.URL, TransactionID: txn.ID}, nil
}

// GetTransaction returns a transaction owned by the caller with email.
func (s *PurchaseService) GetTransaction(ctx context.Context, id, email string) (*model.Transaction, error) {
	id = strings.TrimSpace(id)
	email = normalizeEmail(email)
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NotFound("transaction")
	}
	txn, err := s.transactions.GetForOwner(ctx, id, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NotFound("transaction")
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

func purchaseResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, model.ErrValidation):
		return "invalid"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrGateway):
		return "gateway_error"
	default:
		return "error"
	}
}
