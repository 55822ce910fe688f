/*
scheduler.go - Stale leave request expiry

PURPOSE:
  Periodically rejects pending leave requests whose start date has passed.
  Such requests can never be approved, so leaving them pending only clutters
  the manager queue.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates to LeaveEngine.ExpireStale; a request decided concurrently
    by a manager is skipped by the status compare-and-swap
  - An interval of zero disables the scheduler

USAGE:
  scheduler := NewExpiryScheduler(engine, metrics, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - workforce/leave.go: ExpireStale
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/workforce-engine/workforce"
)

// ExpiryScheduler runs the stale leave sweep.
type ExpiryScheduler struct {
	Engine        *workforce.LeaveEngine
	Metrics       *Metrics
	Logger        *slog.Logger
	CheckInterval time.Duration
	Timeout       time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpiryScheduler creates a scheduler with an hourly interval.
func NewExpiryScheduler(engine *workforce.LeaveEngine, m *Metrics, logger *slog.Logger) *ExpiryScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryScheduler{
		Engine:        engine,
		Metrics:       m,
		Logger:        logger,
		CheckInterval: time.Hour,
		Timeout:       time.Minute,
	}
}

// Start begins the scheduler. It is a no-op when already running or disabled.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CheckInterval <= 0 {
		s.Logger.Info("expiry scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("expiry scheduler started", slog.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight sweep.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("expiry scheduler stopped")
}

func (s *ExpiryScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one sweep and returns how many requests were expired.
func (s *ExpiryScheduler) RunNow() int {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	n, err := s.Engine.ExpireStale(ctx)
	s.Metrics.LeavesExpired(n)
	if err != nil {
		s.Logger.Error("expiry sweep failed", slog.Int("expired", n), slog.Any("error", err))
	}
	return n
}
