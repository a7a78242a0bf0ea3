package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/qrcode"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/telemetry"
)

// Operator-facing validation messages.
const (
	msgValid    = "Ticket valid, access granted"
	msgUsed     = "Ticket already used at %s"
	msgVoid     = "Ticket has been voided"
	msgNotFound = "Ticket not found"
)

// TicketService validates tickets at the venue and lists them for owners.
type TicketService struct {
	tickets TicketStore
	codec   *qrcode.Codec
	clock   clock.Clock
	log     *zap.Logger
}

// NewTicketService constructs a TicketService.
func NewTicketService(tickets TicketStore, codec *qrcode.Codec, clk clock.Clock, log *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, codec: codec, clock: clk, log: log}
}

// Validate admits the ticket carried by a scanned QR payload or a typed id.
// An issued ticket is flipped to used by a single conditional update, so of
// any number of concurrent scans exactly one is valid. Unknown, used and void
// tickets are reported through the result status, not as errors.
func (s *TicketService) Validate(ctx context.Context, payload string) (res *model.ValidationResult, err error) {
	ctx, span := telemetry.Start(ctx, "ticket.validate")
	defer func() {
		if res != nil {
			metrics.TicketValidations.WithLabelValues(string(res.Status)).Inc()
		}
		telemetry.End(span, err)
	}()

	id, err := s.codec.Open(payload)
	if err != nil {
		return notFoundResult(), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return notFoundResult(), nil
	}

	details, ok, err := s.tickets.MarkUsed(ctx, id, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("validate ticket: %w", err)
	}
	if ok {
		s.log.Info("ticket admitted", zap.String("ticket_id", id))
		return &model.ValidationResult{Status: model.ValidationValid, Message: msgValid, Ticket: details}, nil
	}

	details, err = s.tickets.GetDetails(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return notFoundResult(), nil
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	switch details.Status {
	case model.TicketUsed:
		at := "an unknown time"
		if details.ValidatedAt != nil {
			at = details.ValidatedAt.UTC().Format(time.RFC3339)
		}
		s.log.Warn("ticket scanned again", zap.String("ticket_id", id), zap.String("validated_at", at))
		return &model.ValidationResult{
			Status:  model.ValidationAlreadyUsed,
			Message: fmt.Sprintf(msgUsed, at),
			Ticket:  details,
		}, nil
	case model.TicketVoid:
		s.log.Warn("void ticket scanned", zap.String("ticket_id", id))
		return &model.ValidationResult{Status: model.ValidationVoid, Message: msgVoid, Ticket: details}, nil
	default:
		return nil, fmt.Errorf("ticket %s is %s after failed admission", id, details.Status)
	}
}

// ListForUser returns the tickets owned by email, newest first, each with the
// payload to render as its QR code.
func (s *TicketService) ListForUser(ctx context.Context, email string) ([]model.OwnedTicket, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, model.Validationf("email is required")
	}
	tickets, err := s.tickets.ListByOwnerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	for i := range tickets {
		payload, err := s.codec.Seal(tickets[i].ID)
		if err != nil {
			return nil, fmt.Errorf("seal ticket %s: %w", tickets[i].ID, err)
		}
		tickets[i].QRPayload = payload
	}
	if tickets == nil {
		tickets = []model.OwnedTicket{}
	}
	return tickets, nil
}

// Void cancels an issued ticket. Used or already void tickets are a conflict.
func (s *TicketService) Void(ctx context.Context, id string) (*model.TicketDetails, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NotFound("ticket")
	}
	ok, err := s.tickets.Void(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("void ticket: %w", err)
	}

	details, err := s.tickets.GetDetails(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NotFound("ticket")
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	if !ok {
		return nil, model.Conflictf("ticket is %s and cannot be voided", details.Status)
	}
	s.log.Info("ticket voided", zap.String("ticket_id", id))
	return details, nil
}

func notFoundResult() *model.ValidationResult {
	return &model.ValidationResult{Status: model.ValidationNotFound, Message: msgNotFound}
}
