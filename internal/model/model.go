// Package model defines the core domain types for the concert ticketing system.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quantity bounds for a single purchase.
const (
	MinQuantity = 1
	MaxQuantity = 3
)

// Event is a concert with a two-tier price schedule.
type Event struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Venue         string          `json:"venue"`
	StartsAt      time.Time       `json:"starts_at"`
	PresalePrice  decimal.Decimal `json:"presale_price"`
	GeneralPrice  decimal.Decimal `json:"general_price"`
	PresaleEndsAt time.Time       `json:"presale_ends_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// User is a buyer identified by email.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionStatus is the settlement state of a purchase attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one checkout attempt. TotalAmount is fixed at creation.
type Transaction struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	EventID          string            `json:"event_id"`
	Quantity         int               `json:"quantity"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Status           TransactionStatus `json:"status"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	SettledAt        *time.Time        `json:"settled_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// TicketStatus is the admission state of a ticket.
type TicketStatus string

const (
	TicketIssued TicketStatus = "issued"
	TicketUsed   TicketStatus = "used"
	TicketVoid   TicketStatus = "void"
)

// Ticket is one admission unit. Its ID is the secret carried by the QR code.
type Ticket struct {
	ID            string       `json:"id"`
	TransactionID string       `json:"transaction_id"`
	UserID        string       `json:"user_id"`
	Status        TicketStatus `json:"status"`
	ValidatedAt   *time.Time   `json:"validated_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// EventSummary is the slice of an event embedded in ticket views.
type EventSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

// TransactionSummary is the slice of a transaction embedded in ticket listings.
type TransactionSummary struct {
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OwnedTicket is a ticket as shown to its owner on the "my tickets" page.
type OwnedTicket struct {
	Ticket
	QRPayload   string             `json:"qr_payload"`
	Transaction TransactionSummary `json:"transaction"`
	Event       EventSummary       `json:"event"`
}

// TicketDetails is a ticket as shown to venue staff after a scan.
type TicketDetails struct {
	Ticket
	OwnerEmail string       `json:"owner_email"`
	Event      EventSummary `json:"event"`
}

// ValidationStatus is the verdict returned to the scanner.
type ValidationStatus string

const (
	ValidationValid       ValidationStatus = "valid"
	ValidationAlreadyUsed ValidationStatus = "already_used"
	ValidationVoid        ValidationStatus = "void"
	ValidationNotFound    ValidationStatus = "not_found"
)

// ValidationResult is the outcome of a single scan.
type ValidationResult struct {
	Status  ValidationStatus `json:"status"`
	Message string           `json:"message"`
	Ticket  *TicketDetails   `json:"ticket,omitempty"`
}

// OutcomeApproved is the only gateway outcome that completes a transaction.
const OutcomeApproved = "approved"

// PaymentNotification is a settled payment outcome reported by the gateway.
type PaymentNotification struct {
	TransactionID string `json:"transaction_id"`
	Outcome       string `json:"outcome"`
	// Reference is the gateway's own id for the payment, when known.
	Reference string `json:"reference,omitempty"`
}

// ConfirmationResult summarises what a notification did.
type ConfirmationResult struct {
	Transaction Transaction `json:"transaction"`
	// Applied is false when the notification repeated an already recorded outcome.
	Applied bool     `json:"applied"`
	Tickets []Ticket `json:"tickets,omitempty"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name          string          `json:"name"`
	Venue         string          `json:"venue"`
	StartsAt      time.Time       `json:"starts_at"`
	PresalePrice  decimal.Decimal `json:"presale_price"`
	GeneralPrice  decimal.Decimal `json:"general_price"`
	PresaleEndsAt time.Time       `json:"presale_ends_at"`
}

// PriceQuote is the unit price that applies at a given instant.
type PriceQuote struct {
	EventID   string          `json:"event_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Presale   bool            `json:"presale"`
	AsOf      time.Time       `json:"as_of"`
}

// PurchaseRequest is the payload for starting a checkout.
type PurchaseRequest struct {
	Email    string `json:"email"`
	Quantity int    `json:"quantity"`
	EventID  string `json:"event_id"`
}

// PurchaseResult is returned once a pending transaction has a payment link.
type PurchaseResult struct {
	PaymentLink   string `json:"payment_link"`
	TransactionID string `json:"transaction_id"`
}

// ValidateRequest is the payload sent by the venue scanner.
type ValidateRequest struct {
	TicketID string `json:"ticket_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
