package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/payment"
)

const (
	testJWTSecret     = "handler-test-secret"
	testWebhookSecret = "hook-secret"
)

// ─── Mocks ────────────────────────────────────────────────────────────────────

type mockEvents struct{ mock.Mock }

func (m *mockEvents) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, req)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) ListEvents(ctx context.Context) ([]model.Event, error) {
	args := m.Called(ctx)
	e, _ := args.Get(0).([]model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEvents) CurrentPrice(ctx context.Context, id string) (*model.PriceQuote, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*model.PriceQuote)
	return q, args.Error(1)
}

type mockPurchases struct{ mock.Mock }

func (m *mockPurchases) InitiatePurchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*model.PurchaseResult)
	return r, args.Error(1)
}

func (m *mockPurchases) GetTransaction(ctx context.Context, id, email string) (*model.Transaction, error) {
	args := m.Called(ctx, id, email)
	t, _ := args.Get(0).(*model.Transaction)
	return t, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Confirm(ctx context.Context, n model.PaymentNotification) (*model.ConfirmationResult, error) {
	args := m.Called(ctx, n)
	r, _ := args.Get(0).(*model.ConfirmationResult)
	return r, args.Error(1)
}

type mockTickets struct{ mock.Mock }

func (m *mockTickets) Validate(ctx context.Context, payload string) (*model.ValidationResult, error) {
	args := m.Called(ctx, payload)
	r, _ := args.Get(0).(*model.ValidationResult)
	return r, args.Error(1)
}

func (m *mockTickets) ListForUser(ctx context.Context, email string) ([]model.OwnedTicket, error) {
	args := m.Called(ctx, email)
	t, _ := args.Get(0).([]model.OwnedTicket)
	return t, args.Error(1)
}

func (m *mockTickets) Void(ctx context.Context, id string) (*model.TicketDetails, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*model.TicketDetails)
	return d, args.Error(1)
}

type stubStripe struct {
	n         *model.PaymentNotification
	eventType stripe.EventType
	err       error
}

func (s stubStripe) Parse([]byte, string) (*model.PaymentNotification, stripe.EventType, error) {
	return s.n, s.eventType, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// ─── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	events    *mockEvents
	purchases *mockPurchases
	payments  *mockPayments
	tickets   *mockTickets
	verifier  *auth.Verifier
	router    *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		events:    &mockEvents{},
		purchases: &mockPurchases{},
		payments:  &mockPayments{},
		tickets:   &mockTickets{},
		verifier:  auth.NewVerifier(testJWTSecret, ""),
	}
	f.router = &Router{
		Log:         log,
		Auth:        f.verifier,
		CORSOrigins: []string{"https://tickets.example.com"},
		Health:      NewHealthHandler(stubPinger{}, log),
		Events:      NewEventHandler(f.events, log),
		Purchases:   NewPurchaseHandler(f.purchases, log),
		Webhooks:    NewWebhookHandler(f.payments, nil, testWebhookSecret, log),
		Tickets:     NewTicketHandler(f.tickets, log),
	}
	t.Cleanup(func() {
		f.events.AssertExpectations(t)
		f.purchases.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.tickets.AssertExpectations(t)
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) bearer(t *testing.T, email, role string) map[string]string {
	t.Helper()
	token, err := f.verifier.Sign(auth.Identity{Subject: "u-" + email, Email: email, Role: role}, time.Minute)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.router.Health = NewHealthHandler(stubPinger{err: errors.New("down")}, zap.NewNop())
	rec = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPurchase_Created(t *testing.T) {
	f := newFixture(t)
	f.purchases.On("InitiatePurchase", mock.Anything, model.PurchaseRequest{
		Email: "ana@example.com", Quantity: 2, EventID: "e1",
	}).Return(&model.PurchaseResult{PaymentLink: "https://pay/1", TransactionID: "t1"}, nil)

	rec := f.do(t, http.MethodPost, "/purchases", `{"email":"ana@example.com","quantity":2,"event_id":"e1"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"payment_link":"https://pay/1","transaction_id":"t1"}`, rec.Body.String())
}

func TestPurchase_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.Validationf("quantity must be between 1 and 3"), http.StatusBadRequest, codeValidation},
		{"not found", model.NotFound("event"), http.StatusNotFound, codeNotFound},
		{"gateway", model.Gateway(errors.New("timeout")), http.StatusBadGateway, codeGateway},
		{"conflict", model.Conflictf("busy"), http.StatusConflict, codeConflict},
		{"internal", errors.New("pg: connection reset"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.purchases.On("InitiatePurchase", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := f.do(t, http.MethodPost, "/purchases", `{"email":"a@b.co","quantity":9,"event_id":"e1"}`, nil)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody[model.ErrorResponse](t, rec)
			assert.Equal(t, tt.code, body.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "pg:")
			}
		})
	}
}

func TestPurchase_InvalidBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/purchases", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/purchases", `{"email":"a@b.co","price":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	f.events.On("ListEvents", mock.Anything).Return(nil, nil)
	f.events.On("GetEvent", mock.Anything, "missing").Return(nil, model.NotFound("event"))
	f.events.On("CurrentPrice", mock.Anything, "e1").Return(&model.PriceQuote{
		EventID: "e1", UnitPrice: decimal.NewFromInt(45000), Presale: true,
	}, nil)

	rec := f.do(t, http.MethodGet, "/events", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/events/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "event not found", decodeBody[model.ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/events/e1/price", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	q := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "45000", q["unit_price"])
	assert.Equal(t, true, q["presale"])
}

func TestCreateEvent_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	body := `{"name":"Shakira","venue":"El Campín","starts_at":"2026-02-14T21:00:00Z",
		"presale_price":"250000","general_price":"320000","presale_ends_at":"2026-01-01T00:00:00Z"}`

	rec := f.do(t, http.MethodPost, "/events", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/events", body, f.bearer(t, "staff@example.com", auth.RoleStaff))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.events.On("CreateEvent", mock.Anything, mock.MatchedBy(func(req model.CreateEventRequest) bool {
		return req.Name == "Shakira" && req.PresalePrice.Equal(decimal.NewFromInt(250000))
	})).Return(&model.Event{ID: "e9", Name: "Shakira"}, nil)

	rec = f.do(t, http.MethodPost, "/events", body, f.bearer(t, "admin@example.com", auth.RoleAdmin))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPaymentWebhook(t *testing.T) {
	f := newFixture(t)
	secret := map[string]string{WebhookSecretHeader: testWebhookSecret}

	rec := f.do(t, http.MethodPost, "/webhooks/payment", `{"transaction_id":"t1","outcome":"approved"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/webhooks/payment", `{"transaction_id":"t1","outcome":"approved"}`,
		map[string]string{WebhookSecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.payments.On("Confirm", mock.Anything, model.PaymentNotification{TransactionID: "t1", Outcome: "approved"}).
		Return(&model.ConfirmationResult{Applied: true}, nil).Once()
	rec = f.do(t, http.MethodPost, "/webhooks/payment", `{"transaction_id":"t1","outcome":"approved"}`, secret)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	f.payments.On("Confirm", mock.Anything, model.PaymentNotification{TransactionID: "t1", Outcome: "declined"}).
		Return(nil, model.Conflictf("transaction t1 is already completed")).Once()
	rec = f.do(t, http.MethodPost, "/webhooks/payment", `{"transaction_id":"t1","outcome":"declined"}`, secret)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.payments.On("Confirm", mock.Anything, model.PaymentNotification{TransactionID: "t2", Outcome: "approved"}).
		Return(nil, model.NotFound("transaction")).Once()
	rec = f.do(t, http.MethodPost, "/webhooks/payment", `{"transaction_id":"t2","outcome":"approved"}`, secret)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "disabled without a signing secret")

	f.router.Webhooks = NewWebhookHandler(f.payments, stubStripe{err: payment.ErrInvalidSignature}, testWebhookSecret, zap.NewNop())
	rec = f.do(t, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.router.Webhooks = NewWebhookHandler(f.payments, stubStripe{eventType: stripe.EventTypeCustomerCreated}, testWebhookSecret, zap.NewNop())
	rec = f.do(t, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"handled":false}`, rec.Body.String())

	n := &model.PaymentNotification{TransactionID: "t1", Outcome: model.OutcomeApproved, Reference: "cs_1"}
	f.payments.On("Confirm", mock.Anything, *n).Return(&model.ConfirmationResult{
		Applied:     true,
		Transaction: model.Transaction{Status: model.TransactionCompleted},
	}, nil).Once()
	f.router.Webhooks = NewWebhookHandler(f.payments, stubStripe{n: n, eventType: stripe.EventTypeCheckoutSessionCompleted}, testWebhookSecret, zap.NewNop())
	rec = f.do(t, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"handled":true,"applied":true,"status":"completed"}`, rec.Body.String())
}

func TestValidateTicket(t *testing.T) {
	f := newFixture(t)
	body := `{"ticket_id":"BOL-999-2025"}`

	rec := f.do(t, http.MethodPost, "/tickets/validate", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/tickets/validate", body, f.bearer(t, "ana@example.com", auth.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	staff := f.bearer(t, "door@example.com", auth.RoleStaff)
	rec = f.do(t, http.MethodPost, "/tickets/validate", `{"ticket_id":"  "}`, staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.tickets.On("Validate", mock.Anything, "BOL-999-2025").Return(&model.ValidationResult{
		Status: model.ValidationNotFound, Message: "Ticket not found",
	}, nil)
	rec = f.do(t, http.MethodPost, "/tickets/validate", body, staff)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"not_found","message":"Ticket not found"}`, rec.Body.String())
}

func TestMyTickets_ScopedToCaller(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/me/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.tickets.On("ListForUser", mock.Anything, "ana@example.com").Return(nil, nil)
	rec = f.do(t, http.MethodGet, "/me/tickets", "", f.bearer(t, "Ana@Example.com", auth.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.purchases.On("GetTransaction", mock.Anything, "t1", "ana@example.com").Return(&model.Transaction{
		ID: "t1", Status: model.TransactionFailed, FailureReason: "declined",
	}, nil)
	rec = f.do(t, http.MethodGet, "/me/transactions/t1", "", f.bearer(t, "ana@example.com", auth.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code)
	txn := decodeBody[model.Transaction](t, rec)
	assert.Equal(t, model.TransactionFailed, txn.Status)
}

func TestVoidTicket(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/tickets/k1/void", "", f.bearer(t, "door@example.com", auth.RoleStaff))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.tickets.On("Void", mock.Anything, "k1").Return(nil, model.Conflictf("ticket is used and cannot be voided"))
	rec = f.do(t, http.MethodPost, "/tickets/k1/void", "", f.bearer(t, "admin@example.com", auth.RoleAdmin))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ticket is used and cannot be voided", decodeBody[model.ErrorResponse](t, rec).Error)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, "/purchases", "", map[string]string{"Origin": "https://tickets.example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://tickets.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(t, http.MethodOptions, "/purchases", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
