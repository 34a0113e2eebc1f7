package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reel/internal/ledger"
	"reel/internal/logging"
)

const defaultPollInterval = 60 * time.Second

// PublishChecker answers whether a publish already succeeded on a date.
// *ledger.Store satisfies it.
type PublishChecker interface {
	HasPublishedOn(ctx context.Context, date string) (bool, error)
}

// TriggerFunc starts a scheduled pipeline run. The scheduler invokes it
// synchronously from its polling goroutine, so a run in flight naturally
// blocks the next tick's evaluation until it completes.
type TriggerFunc func(ctx context.Context)

// Scheduler fires the trigger callback when the weekly table matches the
// current minute and no publish is recorded for today.
type Scheduler struct {
	table     Table
	checker   PublishChecker
	onTrigger TriggerFunc
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastFired string
}

// Option configures optional Scheduler behavior.
type Option func(*Scheduler)

// WithInterval overrides the polling interval.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithClock overrides the wall-clock source (tests pin it).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a scheduler over the given table. The table and checker
// are owned by the caller; the scheduler only reads them.
func New(table Table, checker PublishChecker, onTrigger TriggerFunc, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		table:     table,
		checker:   checker,
		onTrigger: onTrigger,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
		interval:  defaultPollInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins background polling.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	if s.onTrigger == nil {
		s.mu.Unlock()
		return errors.New("scheduler trigger not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop halts future scheduled triggers and waits for the polling goroutine
// to exit. A trigger already in flight completes; Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the polling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextFireTime computes the nearest future fire time after now. ok is
// false only when no weekday is configured.
func (s *Scheduler) NextFireTime(now time.Time) (time.Time, bool) {
	return s.table.NextFireTime(now)
}

// Entries returns the configured weekly slots in Monday-first order.
func (s *Scheduler) Entries() []Entry {
	return s.table.Entries()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluate(ctx)
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context) {
	now := s.now()
	at, ok := s.table.At(now.Weekday())
	if !ok {
		return
	}
	if now.Hour() != at.Hour || now.Minute() != at.Minute {
		return
	}

	key := now.Format("2006-01-02 15:04")
	s.mu.Lock()
	if s.lastFired == key {
		s.mu.Unlock()
		return
	}
	s.lastFired = key
	s.mu.Unlock()

	published, err := s.checker.HasPublishedOn(ctx, ledger.DateKey(now))
	if err != nil {
		s.logger.Error("dedup check failed; scheduled trigger withheld",
			logging.Error(err),
			logging.String(logging.FieldEventType, "schedule_dedup_check_failed"),
			logging.String(logging.FieldErrorHint, "check ledger database access"),
		)
		return
	}
	if published {
		s.logger.Debug("publish already recorded today; scheduled trigger skipped",
			logging.String("date", ledger.DateKey(now)),
			logging.String(logging.FieldEventType, "schedule_trigger_skipped"),
		)
		return
	}

	s.logger.Info("schedule matched; starting run",
		logging.String("weekday", now.Weekday().String()),
		logging.String("fire_at", at.String()),
		logging.String(logging.FieldEventType, "schedule_trigger_fired"),
	)
	s.onTrigger(context.WithoutCancel(ctx))
}
