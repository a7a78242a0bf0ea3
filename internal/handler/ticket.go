package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// TicketService is the ticket behaviour the ticket handlers need.
type TicketService interface {
	Validate(ctx context.Context, payload string) (*model.ValidationResult, error)
	ListForUser(ctx context.Context, email string) ([]model.OwnedTicket, error)
	Void(ctx context.Context, id string) (*model.TicketDetails, error)
}

// TicketHandler serves ticket listing, scanning and voiding.
type TicketHandler struct {
	svc TicketService
	log *zap.Logger
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(svc TicketService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log}
}

// Validate handles POST /tickets/validate
// Every verdict, including not_found, is a 200 with the status in the body.
func (h *TicketHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), codeInvalidBody)
		return
	}
	if strings.TrimSpace(req.TicketID) == "" {
		writeError(w, http.StatusBadRequest, "ticket_id is required", codeValidation)
		return
	}

	res, err := h.svc.Validate(r.Context(), req.TicketID)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to validate ticket")
		return
	}

	fields := []zap.Field{zap.String("status", string(res.Status))}
	if id, ok := auth.FromContext(r.Context()); ok {
		fields = append(fields, zap.String("operator", id.Email))
	}
	h.log.Info("ticket scanned", fields...)

	writeJSON(w, http.StatusOK, res)
}

// ListMine handles GET /me/tickets
// Lists only the caller's tickets, newest first.
func (h *TicketHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", codeUnauthorized)
		return
	}

	tickets, err := h.svc.ListForUser(r.Context(), id.Email)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []model.OwnedTicket{}
	}

	writeJSON(w, http.StatusOK, tickets)
}

// Void handles POST /tickets/{id}/void
func (h *TicketHandler) Void(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.Void(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to void ticket")
		return
	}

	writeJSON(w, http.StatusOK, details)
}
