package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// DepositRequestStatus represents the status of a deposit request
type DepositRequestStatus string

const (
	DepositRequestStatusPending   DepositRequestStatus = "pending"
	DepositRequestStatusCompleted DepositRequestStatus = "completed"
	DepositRequestStatusExpired   DepositRequestStatus = "expired"
	DepositRequestStatusRejected  DepositRequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s DepositRequestStatus) IsTerminal() bool {
	return s != DepositRequestStatusPending
}

// CanTransition is the request state machine: only pending moves, and only to a terminal state.
func (s DepositRequestStatus) CanTransition(to DepositRequestStatus) bool {
	if s != DepositRequestStatusPending {
		return false
	}
	switch to {
	case DepositRequestStatusCompleted, DepositRequestStatusExpired, DepositRequestStatusRejected:
		return true
	}
	return false
}

// DepositRequest is a customer's request to top up, waiting for a matching bank payment
type DepositRequest struct {
	ID           uuid.UUID            `json:"id"`
	RequesterID  string               `json:"requesterId"`
	Bank         string               `json:"bank"`
	Amount       Money                `json:"amount"`
	Account      string               `json:"account"`
	PaymentHash  string               `json:"paymentHash,omitempty"`
	PaymentURL   string               `json:"paymentUrl,omitempty"`
	Codec        string               `json:"codec,omitempty"`
	Status       DepositRequestStatus `json:"status"`
	StatusReason null.String          `json:"statusReason"`
	CreatedAt    time.Time            `json:"createdAt"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// StatusTransition is a compare-and-set on a request's status.
type StatusTransition struct {
	RequestID uuid.UUID
	To        DepositRequestStatus
	Reason    string
	At        time.Time
}
