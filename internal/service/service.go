// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// UserStore resolves buyers by email.
type UserStore interface {
	ResolveByEmail(ctx context.Context, email string) (*model.User, error)
}

// TransactionStore persists purchase transactions. Calls made with the
// context handed to WithTx's callback share one database transaction.
type TransactionStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, t *model.Transaction) error
	SetPaymentReference(ctx context.Context, id, reference string) error
	GetForUpdate(ctx context.Context, id string) (*model.Transaction, error)
	Settle(ctx context.Context, id string, status model.TransactionStatus, reason, reference string, at time.Time) (bool, error)
	GetForOwner(ctx context.Context, id, email string) (*model.Transaction, error)
}

// TicketStore persists tickets.
type TicketStore interface {
	CreateBatch(ctx context.Context, tickets []model.Ticket) error
	MarkUsed(ctx context.Context, id string, at time.Time) (*model.TicketDetails, bool, error)
	GetDetails(ctx context.Context, id string) (*model.TicketDetails, error)
	Void(ctx context.Context, id string) (bool, error)
	ListByOwnerEmail(ctx context.Context, email string) ([]model.OwnedTicket, error)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// isValidEmail does a basic structural check: local@domain.tld, no spaces.
func isValidEmail(email string) bool {
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := parts[0], parts[1]
	dot := strings.LastIndex(domain, ".")
	return len(local) > 0 && dot > 0 && dot < len(domain)-1
}
