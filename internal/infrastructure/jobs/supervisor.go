package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
)

var ErrAlreadyStarted = errors.New("watcher already started")

// Lease keeps a single active watcher per deployment. A held lease lapses
// after TTL unless renewed.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	TTL() time.Duration
}

// Ticker is one unit of supervised work.
type Ticker interface {
	Tick(ctx context.Context) error
	PollInterval() time.Duration
}

// Supervisor owns the watcher goroutine: it starts it once, holds the lease
// while it runs and stops it gracefully.
type Supervisor struct {
	watcher Ticker
	lease   Lease
	status  func(string)

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	releaseTimeout time.Duration
}

// NewSupervisor supervises w. lease may be nil for single-instance deployments.
func NewSupervisor(w *Watcher, lease Lease) *Supervisor {
	s := newSupervisor(w, lease)
	s.status = w.setState
	return s
}

func newSupervisor(t Ticker, lease Lease) *Supervisor {
	return &Supervisor{
		watcher:        t,
		lease:          lease,
		status:         func(string) {},
		releaseTimeout: 5 * time.Second,
	}
}

// Start launches the loop. A supervisor starts at most once.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx)
	logger.Info(ctx, "Watcher started")
	return nil
}

// Stop signals shutdown and waits for the in-flight tick, or until ctx ends.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		logger.Info(ctx, "Watcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the loop goroutine is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	defer s.status(StateStopped)
	defer s.release()

	for {
		if !s.holdLease(ctx) {
			if err := sleepCtx(ctx, s.watcher.PollInterval()); err != nil {
				return
			}
			continue
		}

		// The lease is renewed for the whole tick and the pause after it.
		// Losing it cancels held, which stops the tick after the record in flight.
		held, stopRenew := s.keepLease(ctx)
		// Errors are recorded by the watcher itself.
		_ = s.watcher.Tick(held)
		_ = sleepCtx(held, s.watcher.PollInterval())
		stopRenew()
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Supervisor) keepLease(ctx context.Context) (context.Context, func()) {
	if s.lease == nil {
		return ctx, func() {}
	}
	held, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(renewInterval(s.lease.TTL()))
		defer t.Stop()
		for {
			select {
			case <-held.Done():
				return
			case <-t.C:
			}
			ok, err := s.lease.Renew(held)
			if held.Err() != nil {
				return
			}
			if err != nil || !ok {
				logger.Warn(ctx, "Watcher lease lost, stopping tick", zap.Bool("held_elsewhere", err == nil), zap.Error(err))
				metrics.WatcherTicksTotal.WithLabelValues("lease_lost").Inc()
				s.status(StateStandby)
				cancel()
				return
			}
		}
	}()
	return held, func() {
		cancel()
		<-done
	}
}

// renewInterval leaves two renewal attempts before the lease can lapse.
func renewInterval(ttl time.Duration) time.Duration {
	if every := ttl / 3; every > time.Millisecond {
		return every
	}
	return time.Millisecond
}

func (s *Supervisor) holdLease(ctx context.Context) bool {
	if s.lease == nil {
		return true
	}
	held, err := s.lease.Acquire(ctx)
	if err != nil {
		logger.Warn(ctx, "Watcher lease check failed", zap.Error(err))
		metrics.WatcherTicksTotal.WithLabelValues("standby").Inc()
		s.status(StateStandby)
		return false
	}
	if !held {
		logger.Debug(ctx, "Watcher lease held elsewhere, standing by")
		metrics.WatcherTicksTotal.WithLabelValues("standby").Inc()
		s.status(StateStandby)
		return false
	}
	return true
}

func (s *Supervisor) release() {
	if s.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.releaseTimeout)
	defer cancel()
	if err := s.lease.Release(ctx); err != nil {
		logger.Warn(ctx, "Failed to release watcher lease", zap.Error(err))
	}
}
