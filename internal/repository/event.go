package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

const eventColumns = `id, name, venue, starts_at, presale_price, general_price, presale_ends_at, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, e.Venue, e.StartsAt,
		e.PresalePrice.String(), e.GeneralPrice.String(),
		e.PresaleEndsAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by start time.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Venue, &e.StartsAt,
			&e.PresalePrice, &e.GeneralPrice, &e.PresaleEndsAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Venue, &e.StartsAt,
		&e.PresalePrice, &e.GeneralPrice, &e.PresaleEndsAt, &e.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}
