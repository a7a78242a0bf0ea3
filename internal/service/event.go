package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// EventService manages the concert catalogue and its price schedule.
type EventService struct {
	events EventStore
	clock  clock.Clock
	log    *zap.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, clk clock.Clock, log *zap.Logger) *EventService {
	return &EventService{events: events, clock: clk, log: log}
}

// CreateEvent validates the request and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Venue = strings.TrimSpace(req.Venue)
	switch {
	case req.Name == "":
		return nil, model.Validationf("name is required")
	case req.Venue == "":
		return nil, model.Validationf("venue is required")
	case req.StartsAt.IsZero():
		return nil, model.Validationf("starts_at is required")
	case req.PresaleEndsAt.IsZero():
		return nil, model.Validationf("presale_ends_at is required")
	case req.PresaleEndsAt.After(req.StartsAt):
		return nil, model.Validationf("presale_ends_at must not be after starts_at")
	case !req.PresalePrice.IsPositive():
		return nil, model.Validationf("presale_price must be positive")
	case !req.GeneralPrice.IsPositive():
		return nil, model.Validationf("general_price must be positive")
	case req.PresalePrice.Exponent() < -2 || req.GeneralPrice.Exponent() < -2:
		return nil, model.Validationf("prices support at most two decimal places")
	}

	e := &model.Event{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Venue:         req.Venue,
		StartsAt:      req.StartsAt.UTC(),
		PresalePrice:  req.PresalePrice,
		GeneralPrice:  req.GeneralPrice,
		PresaleEndsAt: req.PresaleEndsAt.UTC(),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created", zap.String("event_id", e.ID), zap.String("name", e.Name))
	return e, nil
}

// ListEvents returns all events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return loadEvent(ctx, s.events, id)
}

// CurrentPrice quotes the unit price a purchase started now would be charged.
func (s *EventService) CurrentPrice(ctx context.Context, id string) (*model.PriceQuote, error) {
	event, err := loadEvent(ctx, s.events, id)
	if err != nil {
		return nil, err
	}
	q := Quote(event, s.clock.Now())
	return &q, nil
}

func loadEvent(ctx context.Context, events EventStore, id string) (*model.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.Validationf("event id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NotFound("event")
	}
	event, err := events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NotFound("event")
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
