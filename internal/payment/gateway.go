// Package payment talks to the external payment gateway: it opens hosted
// checkout sessions and turns gateway webhooks into payment notifications.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/config"
)

// CheckoutRequest describes the purchase a checkout session is opened for.
type CheckoutRequest struct {
	TransactionID string
	Email         string
	EventName     string
	Quantity      int
	UnitPrice     decimal.Decimal
	Amount        decimal.Decimal
}

// Checkout is a hosted payment page the buyer is redirected to.
type Checkout struct {
	URL string
	// Reference is the gateway's id for the session.
	Reference string
}

// Gateway opens checkout sessions with a payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// New returns the gateway selected by cfg.Provider.
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "stripe":
		return NewStripeGateway(&StripeGatewayConfig{
			SecretKey:  cfg.StripeSecretKey,
			Currency:   cfg.Currency,
			SuccessURL: cfg.SuccessURL,
			CancelURL:  cfg.CancelURL,
			Timeout:    cfg.Timeout,
		})
	case "mock", "":
		return NewMockGateway(&MockGatewayConfig{CheckoutURL: cfg.MockCheckoutURL}), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// minorUnits converts an amount to the currency's smallest unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
