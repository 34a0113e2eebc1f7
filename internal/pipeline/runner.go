package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reel/internal/config"
	"reel/internal/ledger"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/services"
)

var (
	// ErrRunInProgress rejects a trigger of any kind while a run is in
	// flight. The runner never executes two runs concurrently.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrAlreadyPublished rejects a scheduled trigger when the ledger
	// already holds a publish for today.
	ErrAlreadyPublished = errors.New("publish already recorded for today")
)

// Runner executes the pipeline one run at a time.
type Runner struct {
	cfg      *config.Config
	store    *ledger.Store
	collab   Collaborators
	sink     ProgressSink
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	lastRun *Run
}

// RunnerOption configures optional Runner behavior.
type RunnerOption func(*Runner)

// WithSink overrides the progress sink (defaults to the log sink).
func WithSink(sink ProgressSink) RunnerOption {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) RunnerOption {
	return func(r *Runner) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// WithClock overrides the wall-clock source (tests pin it).
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a runner over the given collaborators and ledger.
func NewRunner(cfg *config.Config, store *ledger.Store, collab Collaborators, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		store:  store,
		collab: collab,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = NewLogSink(logger)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	return r
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastRun returns a snapshot of the most recent run (live while one is in
// flight), or nil when the runner has not executed yet.
func (r *Runner) LastRun() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun.Clone()
}

// Run executes the pipeline once. Scheduled triggers re-verify the ledger
// unless skipDedupCheck is set; manual triggers always execute. When a
// step fails, the returned run carries the failure and err is the step's
// error; a nil run means the trigger was rejected before starting.
func (r *Runner) Run(ctx context.Context, trigger TriggerKind, skipDedupCheck bool) (*Run, error) {
	if err := r.checkConfigured(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	start := r.now()
	if trigger == TriggerScheduled && !skipDedupCheck {
		published, err := r.store.HasPublishedOn(ctx, ledger.DateKey(start))
		if err != nil {
			return nil, services.Wrap(services.ErrResource, "pipeline", "dedup check", "query upload ledger", err)
		}
		if published {
			r.logger.Debug("publish already recorded today; run rejected",
				logging.String("date", ledger.DateKey(start)),
				logging.String(logging.FieldTrigger, string(trigger)),
			)
			r.publishEvent(ctx, notifications.EventRunSkipped, notifications.Payload{"date": ledger.DateKey(start)})
			return nil, ErrAlreadyPublished
		}
	}

	run := NewRun(trigger, start)
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithTrigger(ctx, string(trigger))
	logger := logging.WithContext(ctx, r.logger)

	r.setLastRun(run)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("steps", len(run.Steps)),
	)
	r.publishEvent(ctx, notifications.EventRunStarted, notifications.Payload{"trigger": string(trigger)})

	plan, err := r.executePlan(ctx, run)
	if err != nil {
		return r.failRun(ctx, run, StepPlan, err), err
	}

	videoPath, err := r.executeGenerate(ctx, run, plan)
	if err != nil {
		return r.failRun(ctx, run, StepGenerate, err), err
	}

	cleanPath, err := r.executeClean(ctx, run, videoPath)
	if err != nil {
		return r.failRun(ctx, run, StepClean, err), err
	}

	result, err := r.executePublish(ctx, run, plan, cleanPath)
	if err != nil {
		return r.failRun(ctx, run, StepPublish, err), err
	}

	return r.completeRun(ctx, logger, run, plan, result)
}

func (r *Runner) checkConfigured() error {
	switch {
	case r.store == nil:
		return services.Wrap(services.ErrConfiguration, "pipeline", "run", "upload ledger not configured", nil)
	case r.collab.Planner == nil:
		return services.Wrap(services.ErrConfiguration, "pipeline", "run", "planner not configured", nil)
	case r.collab.Generator == nil:
		return services.Wrap(services.ErrConfiguration, "pipeline", "run", "generator not configured", nil)
	case r.collab.Cleaner == nil:
		return services.Wrap(services.ErrConfiguration, "pipeline", "run", "cleaner not configured", nil)
	case r.collab.Publisher == nil:
		return services.Wrap(services.ErrConfiguration, "pipeline", "run", "publisher not configured", nil)
	}
	return nil
}

func (r *Runner) executePlan(ctx context.Context, run *Run) (*ContentPlan, error) {
	stepCtx, logger := r.beginStep(ctx, run, StepPlan)
	plan, err := r.collab.Planner.Plan(stepCtx, r.cfg.Planner.Instructions)
	if err != nil {
		return nil, err
	}
	if plan == nil || strings.TrimSpace(plan.PromptText) == "" {
		return nil, services.Wrap(services.ErrExternalService, "planner", "plan", "planner returned an empty prompt", nil)
	}
	r.finishStep(logger, run, StepPlan, plan.Title)
	return plan, nil
}

func (r *Runner) executeGenerate(ctx context.Context, run *Run, plan *ContentPlan) (string, error) {
	stepCtx, logger := r.beginStep(ctx, run, StepGenerate)
	path, err := r.collab.Generator.Generate(stepCtx, plan.PromptText, r.cfg.Generator.DurationSeconds, r.cfg.Generator.Resolution)
	if err != nil {
		return "", err
	}
	if err := checkArtifact(path); err != nil {
		return "", services.Wrap(services.ErrResource, "generator", "generate", "generated video unusable", err)
	}
	r.finishStep(logger, run, StepGenerate, filepath.Base(path))
	return path, nil
}

func (r *Runner) executeClean(ctx context.Context, run *Run, inputPath string) (string, error) {
	stepCtx, logger := r.beginStep(ctx, run, StepClean)
	path, err := r.collab.Cleaner.Clean(stepCtx, inputPath)
	if err != nil {
		return "", err
	}
	if err := checkArtifact(path); err != nil {
		return "", services.Wrap(services.ErrResource, "cleaner", "clean", "cleaned video unusable", err)
	}
	r.finishStep(logger, run, StepClean, filepath.Base(path))
	return path, nil
}

func (r *Runner) executePublish(ctx context.Context, run *Run, plan *ContentPlan, filePath string) (*UploadResult, error) {
	stepCtx, logger := r.beginStep(ctx, run, StepPublish)
	result, err := r.collab.Publisher.Publish(stepCtx, filePath, plan.Title, plan.Description, plan.Tags, r.cfg.Publisher.Privacy)
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.Identifier) == "" {
		return nil, services.Wrap(services.ErrExternalService, "publisher", "publish", "upload returned no identifier", nil)
	}
	r.finishStep(logger, run, StepPublish, result.Identifier)
	return result, nil
}

func (r *Runner) beginStep(ctx context.Context, run *Run, name StepName) (context.Context, *slog.Logger) {
	now := r.now()
	step := run.Step(name)
	step.Status = StepRunning
	step.StartedAt = &now

	stepCtx := services.WithStep(ctx, string(name))
	stepCtx = WithProgress(stepCtx, func(percent float64, message string) {
		r.sink.OnStepUpdate(name, clampPercent(percent), message)
	})

	logger := logging.WithContext(stepCtx, r.logger)
	if r.cfg != nil {
		if override := stepOverrideLevel(r.cfg.Logging.StepOverrides, string(name)); override != "" {
			logger = logging.WithLevelOverride(logger, parseStepLevel(override))
		}
	}
	logger.Info("step started", logging.String(logging.FieldEventType, "step_start"))

	r.setLastRun(run)
	r.sink.OnStepUpdate(name, 0, name.Label()+" started")
	return stepCtx, logger
}

func (r *Runner) finishStep(logger *slog.Logger, run *Run, name StepName, output string) {
	now := r.now()
	step := run.Step(name)
	step.Status = StepSucceeded
	step.FinishedAt = &now
	step.Output = strings.TrimSpace(output)

	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String("output", step.Output),
		logging.Duration("step_duration", step.Duration()),
	)
	r.setLastRun(run)
	r.sink.OnStepUpdate(name, 100, name.Label()+" completed")
}

func (r *Runner) failRun(ctx context.Context, run *Run, name StepName, stepErr error) *Run {
	now := r.now()
	detail := strings.TrimSpace(stepErr.Error())
	kind := services.Kind(stepErr)

	step := run.Step(name)
	step.Status = StepFailed
	step.FinishedAt = &now
	step.ErrorKind = kind
	step.ErrorDetail = detail

	for i := range run.Steps {
		if run.Steps[i].Status == StepPending {
			run.Steps[i].Status = StepSkipped
		}
	}

	run.Status = RunFailed
	run.Error = detail
	run.ErrorKind = kind
	run.FinishedAt = &now
	r.setLastRun(run)

	logger := logging.WithContext(services.WithStep(ctx, string(name)), r.logger)
	logger.Error("step failed",
		logging.Error(stepErr),
		logging.Alert("step_failure"),
		logging.String(logging.FieldEventType, "step_failure"),
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, hintForKind(kind)),
		logging.Duration("run_duration", run.Duration(now)),
	)

	r.sink.OnRunCompleted(RunFailed, fmt.Sprintf("%s failed: %s", name.Label(), detail))
	r.publishEvent(ctx, notifications.EventRunFailed, notifications.Payload{
		"step":  name.Label(),
		"error": stepErr,
	})
	return run
}

func (r *Runner) completeRun(ctx context.Context, logger *slog.Logger, run *Run, plan *ContentPlan, result *UploadResult) (*Run, error) {
	rec := ledger.NewRecord(run.StartedAt, result.Identifier, plan.Title)
	if err := r.store.RecordPublish(ctx, rec); err != nil {
		wrapped := services.Wrap(services.ErrResource, "pipeline", "record publish", "upload succeeded but the ledger write failed", err)
		now := r.now()
		run.Status = RunFailed
		run.Error = strings.TrimSpace(wrapped.Error())
		run.ErrorKind = services.Kind(wrapped)
		run.FinishedAt = &now
		r.setLastRun(run)

		logger.Error("ledger write failed after publish",
			logging.Error(err),
			logging.Alert("ledger_write_failed"),
			logging.String(logging.FieldEventType, "ledger_write_failed"),
			logging.String(logging.FieldErrorHint, "record the publish manually or the next scheduled run may double-publish today"),
		)
		r.sink.OnRunCompleted(RunFailed, "ledger write failed after publish: "+err.Error())
		r.publishEvent(ctx, notifications.EventRunFailed, notifications.Payload{
			"step":  StepPublish.Label(),
			"error": wrapped,
		})
		return run, wrapped
	}

	now := r.now()
	run.Status = RunSucceeded
	run.FinishedAt = &now
	r.setLastRun(run)

	summary := fmt.Sprintf("published %q as %s", plan.Title, result.Identifier)
	if result.URL != "" {
		summary = fmt.Sprintf("%s (%s)", summary, result.URL)
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("identifier", result.Identifier),
		logging.String("video_title", plan.Title),
		logging.Duration("run_duration", run.Duration(now)),
	)
	r.sink.OnRunCompleted(RunSucceeded, summary)
	r.publishEvent(ctx, notifications.EventRunCompleted, notifications.Payload{
		"title":      plan.Title,
		"identifier": result.Identifier,
		"url":        result.URL,
	})
	return run, nil
}

func (r *Runner) setLastRun(run *Run) {
	snapshot := run.Clone()
	r.mu.Lock()
	r.lastRun = snapshot
	r.mu.Unlock()
}

func (r *Runner) publishEvent(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, r.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
		} else {
			logger.Debug("notification failed", logging.Error(err), logging.String("event", string(event)))
		}
	}
}

func hintForKind(kind string) string {
	switch kind {
	case "configuration":
		return "check config file credentials and settings"
	case "resource":
		return "check disk space and artifact paths"
	case "external_service":
		return "check service status and credentials"
	default:
		return "check logs for details"
	}
}

func clampPercent(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	}
	return percent
}

func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
