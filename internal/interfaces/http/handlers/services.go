package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autodeposit.backend/internal/domain/entities"
	"autodeposit.backend/internal/infrastructure/jobs"
	"autodeposit.backend/internal/usecases"
)

// DepositRequestService is the deposit request usecase as the handlers see it.
type DepositRequestService interface {
	Create(ctx context.Context, in usecases.CreateDepositRequestInput) (*entities.DepositRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.DepositRequest, error)
	Expire(ctx context.Context, id uuid.UUID, reason string) (*entities.DepositRequest, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*entities.DepositRequest, error)
	ListStale(ctx context.Context, olderThan time.Duration, limit, offset int) ([]*entities.DepositRequest, int, error)
}

type ReconciliationService interface {
	Reconcile(ctx context.Context, paymentID uuid.UUID) (*usecases.MatchResult, error)
	ReconcilePending(ctx context.Context, limit int) (*usecases.SweepSummary, error)
	ListUnmatched(ctx context.Context, limit, offset int) ([]*entities.IncomingPayment, int, error)
}

type BankConfigService interface {
	List(ctx context.Context) ([]*usecases.BankView, error)
	Upsert(ctx context.Context, in usecases.UpsertBankConfigInput) (*usecases.BankView, error)
}

type SettingsService interface {
	View(ctx context.Context) (*usecases.SettingsView, error)
	Set(ctx context.Context, key, value string) error
}

// WatcherMonitor exposes the watcher state.
type WatcherMonitor interface {
	Status() jobs.WatcherStatus
}

// NotificationAppender hands a notification to the watcher's source.
type NotificationAppender interface {
	Append(ctx context.Context, n entities.RawNotification) (string, error)
}
