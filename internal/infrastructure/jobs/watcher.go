package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
)

// NotificationIngester stores one transport record and matches it.
type NotificationIngester interface {
	Ingest(ctx context.Context, raw entities.RawNotification) (*usecases.IngestResult, error)
}

// PendingSweeper re-runs the matcher over unprocessed payments.
type PendingSweeper interface {
	ReconcilePending(ctx context.Context, limit int) (*usecases.SweepSummary, error)
}

// WatcherOptions bound one tick.
type WatcherOptions struct {
	BatchSize        int
	SweepLimit       int
	TransportTimeout time.Duration
	FetchRetries     int
	RetryBackoff     time.Duration
	AlarmThreshold   int
	PollInterval     time.Duration
}

func (o *WatcherOptions) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.SweepLimit <= 0 {
		o.SweepLimit = 500
	}
	if o.TransportTimeout <= 0 {
		o.TransportTimeout = 10 * time.Second
	}
	if o.FetchRetries < 0 {
		o.FetchRetries = 0
	}
	if o.AlarmThreshold <= 0 {
		o.AlarmThreshold = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
}

// WatcherStatus is the operator-visible state of the watcher.
type WatcherStatus struct {
	Source              string     `json:"source"`
	State               string     `json:"state"`
	Alarm               bool       `json:"alarm"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Ticks               uint64     `json:"ticks"`
	Ingested            uint64     `json:"ingested"`
	Cursor              string     `json:"cursor"`
	PollInterval        string     `json:"pollInterval"`
	LastTickAt          *time.Time `json:"lastTickAt,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
}

// Watcher states
const (
	StateStopped  = "stopped"
	StateRunning  = "running"
	StateStandby  = "standby"
	StateDisabled = "disabled"
)

// Watcher pulls notifications from one source and feeds them to ingestion.
// A tick never panics the process: failures are counted and raise an alarm
// past the threshold.
type Watcher struct {
	source   repositories.NotificationSource
	cursors  repositories.CursorStore
	ingester NotificationIngester
	sweeper  PendingSweeper
	settings usecases.SettingsProvider
	opts     WatcherOptions

	seq   atomic.Uint64
	mu    sync.Mutex
	state WatcherStatus
	poll  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewWatcher(
	source repositories.NotificationSource,
	cursors repositories.CursorStore,
	ingester NotificationIngester,
	sweeper PendingSweeper,
	settings usecases.SettingsProvider,
	opts WatcherOptions,
) *Watcher {
	opts.applyDefaults()
	return &Watcher{
		source:   source,
		cursors:  cursors,
		ingester: ingester,
		sweeper:  sweeper,
		settings: settings,
		opts:     opts,
		state:    WatcherStatus{Source: source.Name(), State: StateStopped},
		poll:     opts.PollInterval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status returns a snapshot of the watcher state.
func (w *Watcher) Status() WatcherStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.PollInterval = w.poll.String()
	return s
}

// PollInterval is the wait between ticks currently in force.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.poll
}

func (w *Watcher) setState(state string) {
	w.mu.Lock()
	w.state.State = state
	w.mu.Unlock()
}

// Tick runs one fetch → ingest → sweep cycle. Cancelling ctx stops the batch
// after the record in flight; that record is always finished and the cursor
// saved up to it.
func (w *Watcher) Tick(ctx context.Context) error {
	tickID := w.seq.Add(1)
	ctx = logger.WithTick(ctx, tickID)
	started := w.now()
	defer func() { metrics.WatcherTickDuration.Observe(time.Since(started).Seconds()) }()

	settings, err := w.settings.Effective(ctx)
	if err != nil {
		logger.Warn(ctx, "Settings unavailable, using defaults", zap.Error(err))
	}
	w.mu.Lock()
	if settings.PollInterval > 0 {
		w.poll = settings.PollInterval
	}
	w.state.Ticks = tickID
	at := started.UTC()
	w.state.LastTickAt = &at
	w.mu.Unlock()

	if !settings.Enabled {
		w.setState(StateDisabled)
		metrics.WatcherTicksTotal.WithLabelValues("skipped").Inc()
		logger.Debug(ctx, "Autodeposit disabled, tick skipped")
		return nil
	}
	w.setState(StateRunning)

	if err := w.run(ctx); err != nil {
		if ctx.Err() != nil {
			// Shutdown or a lost lease, not a transport failure.
			return ctx.Err()
		}
		w.recordFailure(ctx, err)
		return err
	}
	w.recordSuccess()
	return nil
}

func (w *Watcher) run(ctx context.Context) error {
	name := w.source.Name()
	cursor, err := w.cursors.Load(ctx, name)
	if err != nil {
		return domainerrors.Transient(err)
	}

	records, err := w.fetch(ctx, cursor)
	if err != nil {
		return err
	}

	// Records already started are finished even if shutdown begins.
	work := context.WithoutCancel(ctx)
	next := cursor
	var ingestErr error
	ingested := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		res, err := w.ingester.Ingest(work, rec)
		if res == nil && err != nil {
			// Nothing was stored; leave the cursor before this record.
			ingestErr = err
			break
		}
		if err != nil {
			logger.Warn(ctx, "Notification stored but not settled",
				zap.String("payment_id", res.Payment.ID.String()),
				zap.Error(err),
			)
		}
		next = rec.Cursor
		ingested++
	}

	if next != cursor {
		if err := w.cursors.Save(work, name, next); err != nil {
			return domainerrors.Transient(err)
		}
	}
	w.mu.Lock()
	w.state.Cursor = next
	w.state.Ingested += uint64(ingested)
	w.mu.Unlock()

	if len(records) > 0 {
		logger.Info(ctx, "Watcher batch processed",
			zap.String("source", name),
			zap.Int("fetched", len(records)),
			zap.Int("ingested", ingested),
			zap.String("cursor", next),
		)
	}
	if ingestErr != nil {
		return ingestErr
	}
	if ctx.Err() != nil {
		return nil
	}

	summary, err := w.sweeper.ReconcilePending(ctx, w.opts.SweepLimit)
	if err != nil {
		return err
	}
	if summary != nil && summary.Outcomes[usecases.OutcomeMatched] > 0 {
		logger.Info(ctx, "Sweep settled parked payments",
			zap.Int("scanned", summary.Scanned),
			zap.Int("matched", summary.Outcomes[usecases.OutcomeMatched]),
		)
	}
	return nil
}

// fetch reads one batch, retrying transient failures with exponential backoff.
func (w *Watcher) fetch(ctx context.Context, cursor string) ([]entities.RawNotification, error) {
	backoff := w.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		fctx, cancel := context.WithTimeout(ctx, w.opts.TransportTimeout)
		records, err := w.source.Fetch(fctx, cursor, w.opts.BatchSize)
		cancel()
		if err == nil {
			return records, nil
		}
		if !domainerrors.IsTransient(err) || attempt >= w.opts.FetchRetries {
			return nil, err
		}
		logger.Warn(ctx, "Fetch failed, retrying",
			zap.String("source", w.source.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if backoff > 0 {
			if err := w.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
	}
}

func (w *Watcher) recordFailure(ctx context.Context, err error) {
	w.mu.Lock()
	w.state.ConsecutiveFailures++
	w.state.LastError = err.Error()
	failures := w.state.ConsecutiveFailures
	raised := !w.state.Alarm && failures >= w.opts.AlarmThreshold
	if failures >= w.opts.AlarmThreshold {
		w.state.Alarm = true
	}
	w.mu.Unlock()

	metrics.WatcherTicksTotal.WithLabelValues("failed").Inc()
	metrics.WatcherConsecutiveFailures.Set(float64(failures))
	if raised {
		metrics.SetAlarm(true)
		logger.Error(ctx, "Watcher alarm raised", zap.Int("consecutive_failures", failures), zap.Error(err))
		return
	}
	logger.Warn(ctx, "Watcher tick failed", zap.Int("consecutive_failures", failures), zap.Error(err))
}

func (w *Watcher) recordSuccess() {
	w.mu.Lock()
	cleared := w.state.Alarm
	w.state.ConsecutiveFailures = 0
	w.state.Alarm = false
	w.state.LastError = ""
	at := w.now().UTC()
	w.state.LastSuccessAt = &at
	w.mu.Unlock()

	metrics.WatcherTicksTotal.WithLabelValues("ok").Inc()
	metrics.WatcherConsecutiveFailures.Set(0)
	if cleared {
		metrics.SetAlarm(false)
		logger.Info(context.Background(), "Watcher alarm cleared")
	}
}
