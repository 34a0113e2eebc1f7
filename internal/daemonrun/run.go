package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"reel/internal/cleaner"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/generator"
	"reel/internal/ipc"
	"reel/internal/ledger"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/pipeline"
	"reel/internal/planner"
	"reel/internal/preflight"
	"reel/internal/publisher"
	"reel/internal/schedule"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the reel daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reel-%s.log", runID))

	var debugLogPath string
	if opts.Diagnostic {
		debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, fmt.Sprintf("reel-%s.log", runID))
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			if err := ensureCurrentLogPointer(filepath.Join(cfg.Paths.LogDir, "debug"), debugLogPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update debug/reel.log link: %v\n", err)
			}
		}
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reel.log link: %v\n", err)
	}
	retention := []logging.RetentionTarget{
		{Dir: cfg.Paths.LogDir, Pattern: "reel-*.log", Exclude: []string{logPath}},
	}
	if debugLogPath != "" {
		retention = append(retention, logging.RetentionTarget{
			Dir:     filepath.Join(cfg.Paths.LogDir, "debug"),
			Pattern: "reel-*.log",
			Exclude: []string{debugLogPath},
		})
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, retention...)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := ledger.Open(cfg)
	if err != nil {
		logger.Error("open upload ledger", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	statusSink := pipeline.NewStatusSink()
	runner := pipeline.NewRunner(cfg, store, pipeline.Collaborators{
		Planner:   planner.New(cfg, logger),
		Generator: generator.New(cfg, logger),
		Cleaner:   cleaner.New(cfg, logger),
		Publisher: publisher.New(cfg, logger),
	}, logger,
		pipeline.WithNotifier(notifier),
		pipeline.WithSink(pipeline.NewMultiSink(pipeline.NewLogSink(logger), statusSink)),
	)

	table, err := schedule.ParseTable(cfg.Schedule.Entries)
	if err != nil {
		logger.Error("parse schedule table", logging.Error(err))
		return err
	}
	var schedOpts []schedule.Option
	if cfg.Schedule.CheckIntervalSeconds > 0 {
		schedOpts = append(schedOpts, schedule.WithInterval(time.Duration(cfg.Schedule.CheckIntervalSeconds)*time.Second))
	}
	onTrigger := func(ctx context.Context) {
		if run, err := runner.Run(ctx, pipeline.TriggerScheduled, false); err != nil && run == nil {
			logger.Warn("scheduled run rejected",
				logging.Error(err),
				logging.String(logging.FieldEventType, "scheduled_run_rejected"),
			)
		}
	}
	sched := schedule.New(table, store, onTrigger, logger, schedOpts...)

	d, err := daemon.New(cfg, store, runner, sched, logger, logPath, daemon.WithProgressSink(statusSink))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_check_failed"),
		)
	}

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and ledger database access"),
			logging.String(logging.FieldImpact, "scheduled runs will not fire"),
		)
	}

	<-signalCtx.Done()
	logger.Info("reel daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "reel.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("planner_key_present", strings.TrimSpace(cfg.Planner.APIKey) != ""),
		logging.Bool("generator_key_present", strings.TrimSpace(cfg.Generator.APIKey) != ""),
		logging.Bool("publisher_credentials_present", publisherCredentialsPresent(cfg)),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("enhance_enabled", cfg.Cleaner.Enhance),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("schedule_entries", len(cfg.Schedule.Entries)),
	)
}

func publisherCredentialsPresent(cfg *config.Config) bool {
	return strings.TrimSpace(cfg.Publisher.AccessToken) != "" ||
		strings.TrimSpace(cfg.Publisher.TokenPath) != ""
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
