package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// Outcomes derived from Stripe checkout events.
const (
	OutcomeDeclined = "declined"
	OutcomeExpired  = "expired"
)

// ErrInvalidSignature is returned when a Stripe webhook fails verification.
var ErrInvalidSignature = errors.New("invalid stripe signature")

// StripeWebhook verifies Stripe webhook deliveries and maps checkout events
// onto payment notifications.
type StripeWebhook struct {
	secret string
}

// NewStripeWebhook returns a verifier for the given signing secret.
func NewStripeWebhook(secret string) *StripeWebhook {
	return &StripeWebhook{secret: secret}
}

// Parse verifies payload against the Stripe-Signature header and returns the
// notification it carries. A nil notification means the event type is not
// one this service acts on.
func (w *StripeWebhook) Parse(payload []byte, signature string) (*model.PaymentNotification, stripe.EventType, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome string
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		outcome = model.OutcomeApproved
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		outcome = OutcomeDeclined
	case stripe.EventTypeCheckoutSessionExpired:
		outcome = OutcomeExpired
	default:
		return nil, event.Type, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, event.Type, fmt.Errorf("decode checkout session: %w", err)
	}

	// Delayed payment methods complete the session unpaid and settle later
	// through async_payment_succeeded or async_payment_failed.
	if event.Type == stripe.EventTypeCheckoutSessionCompleted && s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, event.Type, nil
	}

	txnID := s.ClientReferenceID
	if txnID == "" {
		txnID = s.Metadata["transaction_id"]
	}
	if txnID == "" {
		return nil, event.Type, fmt.Errorf("checkout session %s has no transaction reference", s.ID)
	}

	return &model.PaymentNotification{
		TransactionID: txnID,
		Outcome:       outcome,
		Reference:     s.ID,
	}, event.Type, nil
}
