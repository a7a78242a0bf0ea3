package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/payment"
)

// memStore is an in-memory stand-in for the Postgres repositories. WithTx
// holds txMu for the whole callback, which mirrors the row lock taken by
// GetForUpdate, and restores the maps when the callback fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	events       map[string]model.Event
	users        map[string]model.User
	transactions map[string]model.Transaction
	tickets      map[string]model.Ticket

	createBatchErr error
}

func newMemStore() *memStore {
	return &memStore{
		events:       map[string]model.Event{},
		users:        map[string]model.User{},
		transactions: map[string]model.Transaction{},
		tickets:      map[string]model.Ticket{},
	}
}

// events

func (m *memStore) Create(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) List(context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

// users

func (m *memStore) ResolveByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return &u, nil
	}
	u := model.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	m.users[email] = u
	return &u, nil
}

func (m *memStore) userByID(id string) model.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return model.User{}
}

// transactions

type memTxStore struct{ *memStore }

func (m memTxStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	txns := cloneMap(m.transactions)
	tickets := cloneMap(m.tickets)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.transactions = txns
		m.tickets = tickets
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m memTxStore) Create(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = *t
	return nil
}

func (m memTxStore) SetPaymentReference(_ context.Context, id, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return model.ErrNotFound
	}
	t.PaymentReference = reference
	m.transactions[id] = t
	return nil
}

func (m memTxStore) GetForUpdate(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

func (m memTxStore) Settle(_ context.Context, id string, status model.TransactionStatus, reason, reference string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.Status != model.TransactionPending {
		return false, nil
	}
	t.Status = status
	t.FailureReason = reason
	if reference != "" {
		t.PaymentReference = reference
	}
	t.SettledAt = &at
	m.transactions[id] = t
	return true, nil
}

func (m memTxStore) GetForOwner(_ context.Context, id, email string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || m.userByID(t.UserID).Email != email {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

// tickets

type memTicketStore struct{ *memStore }

func (m memTicketStore) CreateBatch(_ context.Context, tickets []model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	for _, t := range tickets {
		m.tickets[t.ID] = t
	}
	return nil
}

func (m memTicketStore) MarkUsed(_ context.Context, id string, at time.Time) (*model.TicketDetails, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != model.TicketIssued {
		return nil, false, nil
	}
	t.Status = model.TicketUsed
	t.ValidatedAt = &at
	m.tickets[id] = t
	return m.details(t), true, nil
}

func (m memTicketStore) GetDetails(_ context.Context, id string) (*model.TicketDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return m.details(t), nil
}

func (m memTicketStore) Void(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != model.TicketIssued {
		return false, nil
	}
	t.Status = model.TicketVoid
	m.tickets[id] = t
	return true, nil
}

func (m memTicketStore) ListByOwnerEmail(_ context.Context, email string) ([]model.OwnedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OwnedTicket
	for _, t := range m.tickets {
		if m.userByID(t.UserID).Email != email {
			continue
		}
		txn := m.transactions[t.TransactionID]
		out = append(out, model.OwnedTicket{
			Ticket:      t,
			Transaction: model.TransactionSummary{Quantity: txn.Quantity, TotalAmount: txn.TotalAmount, CreatedAt: txn.CreatedAt},
			Event:       m.summary(txn.EventID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) details(t model.Ticket) *model.TicketDetails {
	txn := m.transactions[t.TransactionID]
	return &model.TicketDetails{
		Ticket:     t,
		OwnerEmail: m.userByID(t.UserID).Email,
		Event:      m.summary(txn.EventID),
	}
}

func (m *memStore) summary(eventID string) model.EventSummary {
	e := m.events[eventID]
	return model.EventSummary{ID: e.ID, Name: e.Name, Venue: e.Venue, StartsAt: e.StartsAt}
}

func (m *memStore) ticketsFor(txnID string) []model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.TransactionID == txnID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memStore) transaction(id string) model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions[id]
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// fakeGateway records checkout requests and can be made to fail.
type fakeGateway struct {
	mu       sync.Mutex
	err      error
	requests []payment.CheckoutRequest
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &payment.Checkout{
		URL:       "https://checkout.test/pay/" + req.TransactionID,
		Reference: "cs_" + req.TransactionID,
	}, nil
}
