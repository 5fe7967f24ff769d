package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autodeposit.backend/internal/domain/entities"
)

// IncomingPaymentRepository interface
type IncomingPaymentRepository interface {
	// Create inserts a payment; a dedup key collision returns ErrDuplicatePayment.
	Create(ctx context.Context, payment *entities.IncomingPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.IncomingPayment, error)
	GetByDedupKey(ctx context.Context, dedupKey string) (*entities.IncomingPayment, error)
	// MarkProcessed links an unprocessed payment to a request. It returns
	// ErrPaymentProcessed when the row was already processed.
	MarkProcessed(ctx context.Context, id, requestID uuid.UUID, at time.Time) error
	SetReviewReason(ctx context.Context, id uuid.UUID, reason string) error
	ListUnmatched(ctx context.Context, limit, offset int) ([]*entities.IncomingPayment, int, error)
	// ListUnprocessedIDs returns unprocessed payments oldest first.
	ListUnprocessedIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}
