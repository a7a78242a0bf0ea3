package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// PurchaseService is the checkout behaviour the purchase handlers need.
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseResult, error)
	GetTransaction(ctx context.Context, id, email string) (*model.Transaction, error)
}

// PurchaseHandler serves checkout initiation and transaction status.
type PurchaseHandler struct {
	svc PurchaseService
	log *zap.Logger
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(svc PurchaseService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, log: log}
}

// Create handles POST /purchases
// Responds with the payment link the client redirects the buyer to.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), codeInvalidBody)
		return
	}

	res, err := h.svc.InitiatePurchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to start purchase")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// GetMyTransaction handles GET /me/transactions/{id}
func (h *PurchaseHandler) GetMyTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", codeUnauthorized)
		return
	}

	txn, err := h.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"), id.Email)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to get transaction")
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
