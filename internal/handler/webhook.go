package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/payment"
)

// WebhookSecretHeader carries the shared secret on generic payment webhooks.
const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentService applies gateway notifications.
type PaymentService interface {
	Confirm(ctx context.Context, n model.PaymentNotification) (*model.ConfirmationResult, error)
}

// StripeParser verifies and decodes Stripe webhook deliveries.
type StripeParser interface {
	Parse(payload []byte, signature string) (*model.PaymentNotification, stripe.EventType, error)
}

// WebhookHandler receives payment outcomes from the gateway.
type WebhookHandler struct {
	svc    PaymentService
	stripe StripeParser
	secret []byte
	log    *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler. stripeParser may be nil when
// Stripe is not configured.
func NewWebhookHandler(svc PaymentService, stripeParser StripeParser, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, stripe: stripeParser, secret: []byte(secret), log: log}
}

type paymentWebhookRequest struct {
	TransactionID string `json:"transaction_id"`
	Outcome       string `json:"outcome"`
	Reference     string `json:"reference,omitempty"`
}

// Payment handles POST /webhooks/payment
// Body: {"transaction_id": "...", "outcome": "approved"|"declined"|...}.
// Replies 204 when the outcome is applied or was already recorded.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	given := []byte(r.Header.Get(WebhookSecretHeader))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(given, h.secret) != 1 {
		h.log.Warn("payment webhook with bad secret", zap.String("remote_addr", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid webhook secret", codeUnauthorized)
		return
	}

	var req paymentWebhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), codeInvalidBody)
		return
	}

	if _, err := h.svc.Confirm(r.Context(), model.PaymentNotification{
		TransactionID: req.TransactionID,
		Outcome:       req.Outcome,
		Reference:     req.Reference,
	}); err != nil {
		writeServiceError(w, r, h.log, err, "failed to apply payment notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stripe handles POST /webhooks/stripe
// Verifies the Stripe-Signature header and applies checkout session events.
// Events this service does not act on are acknowledged with 200.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if h.stripe == nil {
		writeError(w, http.StatusNotFound, "stripe webhooks are not enabled", codeNotFound)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", codeInvalidBody)
		return
	}

	n, eventType, err := h.stripe.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.log.Warn("stripe webhook signature rejected", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid signature", codeUnauthorized)
			return
		}
		h.log.Error("stripe webhook could not be decoded", zap.String("event_type", string(eventType)), zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid event payload", codeInvalidBody)
		return
	}
	if n == nil {
		h.log.Debug("stripe event ignored", zap.String("event_type", string(eventType)))
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "handled": false})
		return
	}

	res, err := h.svc.Confirm(r.Context(), *n)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to apply payment notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"handled":  true,
		"applied":  res.Applied,
		"status":   res.Transaction.Status,
	})
}
