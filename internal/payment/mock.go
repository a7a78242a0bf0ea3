package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ErrMockUnavailable is returned while the mock gateway is set to fail.
var ErrMockUnavailable = errors.New("mock gateway unavailable")

// MockGateway builds local checkout links without calling a provider. The
// links point at MockCheckoutURL, which is expected to post the outcome to
// the generic payment webhook.
type MockGateway struct {
	config *MockGatewayConfig

	mu      sync.Mutex
	failing bool
	last    *CheckoutRequest
}

// MockGatewayConfig holds configuration for the mock gateway.
type MockGatewayConfig struct {
	CheckoutURL string
	// Delay simulates provider latency. The wait honours ctx.
	Delay time.Duration
}

// NewMockGateway creates a mock gateway.
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = &MockGatewayConfig{}
	}
	if config.CheckoutURL == "" {
		config.CheckoutURL = "http://localhost:8080/mock-checkout"
	}
	return &MockGateway{config: config}
}

// SetFailing makes subsequent CreateCheckout calls fail.
func (g *MockGateway) SetFailing(failing bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing = failing
}

// CreateCheckout returns a checkout link carrying the transaction id.
func (g *MockGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if g.config.Delay > 0 {
		select {
		case <-time.After(g.config.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return nil, ErrMockUnavailable
	}

	u, err := url.Parse(g.config.CheckoutURL)
	if err != nil {
		return nil, fmt.Errorf("parse mock checkout url: %w", err)
	}
	q := u.Query()
	q.Set("transaction_id", req.TransactionID)
	q.Set("amount", req.Amount.String())
	u.RawQuery = q.Encode()

	g.last = &req
	return &Checkout{URL: u.String(), Reference: "mock_" + req.TransactionID}, nil
}

// LastCheckout returns the most recent successful checkout request.
func (g *MockGateway) LastCheckout() (CheckoutRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return CheckoutRequest{}, false
	}
	return *g.last, true
}
