package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autodeposit.backend/internal/domain/entities"
)

// CandidateQuery selects pending requests a payment may settle.
type CandidateQuery struct {
	Bank          string
	MinAmount     entities.Money
	MaxAmount     entities.Money
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Limit         int
}

// DepositRequestRepository interface
type DepositRequestRepository interface {
	Create(ctx context.Context, request *entities.DepositRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.DepositRequest, error)
	// FindCandidates returns pending requests ordered by created_at, id.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*entities.DepositRequest, error)
	// Transition moves a pending request to a terminal status. It returns
	// ErrRequestNotPending when the row is no longer pending.
	Transition(ctx context.Context, t entities.StatusTransition) error
	ListPendingOlderThan(ctx context.Context, before time.Time, limit, offset int) ([]*entities.DepositRequest, int, error)
}
