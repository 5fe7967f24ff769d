package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/logger"
)

// StaleRequestExpirer expires pending requests older than ttl.
type StaleRequestExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration, batch int) (int, error)
}

// DepositRequestExpiryJob handles expiring deposit requests nobody paid.
type DepositRequestExpiryJob struct {
	expirer  StaleRequestExpirer
	settings usecases.SettingsProvider
	interval time.Duration
	batch    int
	stop     chan struct{}
}

func NewDepositRequestExpiryJob(expirer StaleRequestExpirer, settings usecases.SettingsProvider, interval time.Duration) *DepositRequestExpiryJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DepositRequestExpiryJob{
		expirer:  expirer,
		settings: settings,
		interval: interval,
		batch:    100,
		stop:     make(chan struct{}),
	}
}

func (j *DepositRequestExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting deposit request expiry job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "Deposit request expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Deposit request expiry job stopped")
			return
		case <-ticker.C:
			j.processExpiredRequests(ctx)
		}
	}
}

func (j *DepositRequestExpiryJob) Stop() {
	close(j.stop)
}

func (j *DepositRequestExpiryJob) processExpiredRequests(ctx context.Context) {
	settings, err := j.settings.Effective(ctx)
	if err != nil {
		logger.Warn(ctx, "Settings unavailable, using defaults", zap.Error(err))
	}
	if settings.RequestTTL <= 0 {
		return
	}

	n, err := j.expirer.ExpireStale(ctx, settings.RequestTTL, j.batch)
	if err != nil {
		logger.Error(ctx, "Error expiring deposit requests", zap.Int("expired", n), zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info(ctx, "Expired deposit requests", zap.Int("count", n), zap.Duration("ttl", settings.RequestTTL))
	}
}
