package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
)

// IngestResult reports what happened to one transport record.
type IngestResult struct {
	Payment   *entities.IncomingPayment `json:"payment"`
	Duplicate bool                      `json:"duplicate"`
	Match     *MatchResult              `json:"match,omitempty"`
}

// IngestionUsecase normalizes a transport record, stores it once and runs
// the matcher on it.
type IngestionUsecase struct {
	normalizer *Normalizer
	payments   repositories.IncomingPaymentRepository
	matcher    *ReconciliationUsecase
}

func NewIngestionUsecase(normalizer *Normalizer, payments repositories.IncomingPaymentRepository, matcher *ReconciliationUsecase) *IngestionUsecase {
	return &IngestionUsecase{normalizer: normalizer, payments: payments, matcher: matcher}
}

// Ingest never drops a record: unreadable notifications are stored parked.
// A redelivered record is a no-op that returns the stored row.
func (u *IngestionUsecase) Ingest(ctx context.Context, raw entities.RawNotification) (*IngestResult, error) {
	payment := u.normalizer.Normalize(raw)

	err := u.payments.Create(ctx, payment)
	if errors.Is(err, domainerrors.ErrDuplicatePayment) {
		metrics.NotificationsTotal.WithLabelValues("duplicate").Inc()
		existing, getErr := u.payments.GetByDedupKey(ctx, payment.DedupKey)
		if getErr != nil {
			return nil, domainerrors.Transient(getErr)
		}
		logger.Debug(ctx, "Duplicate notification ignored",
			zap.String("dedup_key", payment.DedupKey),
			zap.String("payment_id", existing.ID.String()),
		)
		return &IngestResult{Payment: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, domainerrors.Transient(fmt.Errorf("store payment: %w", err))
	}

	if payment.ReviewReason.Valid {
		metrics.NotificationsTotal.WithLabelValues("parked").Inc()
		logger.Warn(ctx, "Notification parked for review",
			zap.String("payment_id", payment.ID.String()),
			zap.String("reason", payment.ReviewReason.String),
		)
	} else {
		metrics.NotificationsTotal.WithLabelValues("stored").Inc()
	}

	match, err := u.matcher.reconcile(ctx, payment)
	if match != nil {
		metrics.MatchOutcomesTotal.WithLabelValues(string(match.Outcome)).Inc()
		if match.Outcome == OutcomeMatched {
			payment.IsProcessed = true
			payment.LinkedRequestID = match.RequestID
		}
		if match.Reason != "" && !payment.ReviewReason.Valid {
			payment.ReviewReason = null.StringFrom(match.Reason)
		}
	}
	result := &IngestResult{Payment: payment, Match: match}
	if err != nil && !errors.Is(err, domainerrors.ErrValidation) {
		return result, err
	}
	return result, nil
}
