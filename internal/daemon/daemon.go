package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reel/internal/config"
	"reel/internal/ledger"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/pipeline"
	"reel/internal/preflight"
	"reel/internal/schedule"
)

// defaultTriggerGrace bounds how long a non-waiting manual trigger blocks
// before reporting the run as accepted. Rejections (run in progress,
// missing collaborators) surface within this window; anything slower is a
// real run and continues in the background.
const defaultTriggerGrace = 250 * time.Millisecond

// Daemon coordinates the scheduler and runner and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	store     *ledger.Store
	runner    *pipeline.Runner
	scheduler *schedule.Scheduler
	logger    *slog.Logger
	logPath   string

	lockPath string
	lock     *flock.Flock

	grace    time.Duration
	progress *pipeline.StatusSink

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status is a point-in-time snapshot of daemon state for IPC and CLI
// rendering.
type Status struct {
	Running       bool
	PID           int
	LockPath      string
	LedgerPath    string
	LogPath       string
	Schedule      []schedule.Entry
	NextRunAt     *time.Time
	Progress      *pipeline.StepProgress
	LastRun       *pipeline.Run
	LastPublished *ledger.Record
	Checks        []preflight.Result
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithTriggerGrace overrides the accept window for non-waiting manual
// triggers (tests shrink it).
func WithTriggerGrace(grace time.Duration) Option {
	return func(d *Daemon) {
		if grace > 0 {
			d.grace = grace
		}
	}
}

// WithProgressSink lets status queries report what an active run is
// doing. The sink must also be wired into the runner.
func WithProgressSink(sink *pipeline.StatusSink) Option {
	return func(d *Daemon) {
		d.progress = sink
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, runner *pipeline.Runner, scheduler *schedule.Scheduler, logger *slog.Logger, logPath string, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || scheduler == nil || logger == nil {
		return nil, errors.New("daemon requires config, ledger store, runner, scheduler, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		store:     store,
		runner:    runner,
		scheduler: scheduler,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		logPath:   logPath,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		grace:     defaultTriggerGrace,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock and begins scheduled processing.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reel daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.scheduler.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("reel daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("schedule_entries", len(d.scheduler.Entries())),
	)
	return nil
}

// Stop halts future scheduled triggers and releases the daemon lock. It
// returns after in-flight runs reach a terminal state; it never aborts
// them.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.scheduler.Stop()
	d.wg.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start is refused"),
		)
	}
	d.running.Store(false)
	d.logger.Info("reel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether scheduled processing is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// TriggerRun starts a manual pipeline run, bypassing the once-per-day
// check. When wait is true the call blocks until the run reaches a
// terminal state and returns it. Otherwise the run continues in the
// background and both return values are nil once it is accepted; only
// immediate rejections surface as errors.
func (d *Daemon) TriggerRun(ctx context.Context, wait bool) (*pipeline.Run, error) {
	if wait {
		d.wg.Add(1)
		defer d.wg.Done()
		return d.runner.Run(ctx, pipeline.TriggerManual, true)
	}

	type outcome struct {
		run *pipeline.Run
		err error
	}
	done := make(chan outcome, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		run, err := d.runner.Run(context.WithoutCancel(ctx), pipeline.TriggerManual, true)
		if err != nil && run == nil {
			d.logger.Warn("manual run rejected",
				logging.Error(err),
				logging.String(logging.FieldEventType, "manual_run_rejected"),
			)
		}
		done <- outcome{run: run, err: err}
	}()

	timer := time.NewTimer(d.grace)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.run, out.err
	case <-timer.C:
		return nil, nil
	}
}

// History returns recent ledger records, most recent first.
func (d *Daemon) History(ctx context.Context, limit int) ([]ledger.Record, error) {
	if d.store == nil {
		return nil, errors.New("ledger store unavailable")
	}
	return d.store.RecentRecords(ctx, limit)
}

// NextFireTime reports the next scheduled trigger after now. ok is false
// when no weekday is configured.
func (d *Daemon) NextFireTime(now time.Time) (time.Time, bool) {
	return d.scheduler.NextFireTime(now)
}

// TestNotification sends a test event through the configured channel.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status. Preflight checks run fresh on
// every call so the snapshot reflects the host as it is now, not as it was
// at startup.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		LockPath:   d.lockPath,
		LedgerPath: d.store.Path(),
		LogPath:    d.logPath,
		Schedule:   d.scheduler.Entries(),
		LastRun:    d.runner.LastRun(),
		Checks:     preflight.RunAll(ctx, d.cfg),
	}
	if next, ok := d.scheduler.NextFireTime(time.Now()); ok {
		status.NextRunAt = &next
	}
	if d.progress != nil {
		status.Progress = d.progress.Current()
	}
	if rec, err := d.store.LastPublished(ctx); err == nil {
		status.LastPublished = rec
	} else {
		d.logger.Debug("last published lookup failed", logging.Error(err))
	}
	return status
}
