package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// UserRepository handles persistence for buyers.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// ResolveByEmail returns the user owning email, creating it on first use.
// The no-op update makes RETURNING yield the existing row on conflict.
func (r *UserRepository) ResolveByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO users (id, email, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, created_at`,
		uuid.NewString(), email, time.Now().UTC(),
	).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return &u, nil
}
