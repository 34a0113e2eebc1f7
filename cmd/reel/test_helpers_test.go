package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/ipc"
	"reel/internal/ledger"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/schedule"
	"reel/internal/testsupport"
)

type stubPlanner struct {
	plan *pipeline.ContentPlan
}

func (s stubPlanner) Plan(context.Context, string) (*pipeline.ContentPlan, error) {
	return s.plan, nil
}

type stubGenerator struct {
	path string
}

func (s stubGenerator) Generate(context.Context, string, int, string) (string, error) {
	return s.path, nil
}

type stubCleaner struct {
	path string
}

func (s stubCleaner) Clean(context.Context, string) (string, error) {
	return s.path, nil
}

type stubPublisher struct {
	result *pipeline.UploadResult
}

func (s stubPublisher) Publish(context.Context, string, string, string, []string, string) (*pipeline.UploadResult, error) {
	return s.result, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *ledger.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t,
		testsupport.WithScheduleEntry("friday", "18:00"),
		testsupport.WithStubbedBinaries(),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "reel-test.log")
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(logPath, nil, 0o644); err != nil {
			t.Fatalf("create log file: %v", err)
		}
	}

	configPath := filepath.Join(homeDir, ".config", "reel", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenLedger(t, cfg)

	generated := filepath.Join(cfg.Paths.TempDir, "generated.mp4")
	cleaned := filepath.Join(cfg.Paths.OutputDir, "cleaned.mp4")
	testsupport.WriteFile(t, generated, 4096)
	testsupport.WriteFile(t, cleaned, 4096)

	logger := logging.NewNop()
	runner := pipeline.NewRunner(cfg, store, pipeline.Collaborators{
		Planner: stubPlanner{plan: &pipeline.ContentPlan{
			PromptText:  "A quiet tide pool at golden hour",
			Title:       "Tide Pool",
			Description: "Slow water over rocks.",
			Tags:        []string{"ambient"},
		}},
		Generator: stubGenerator{path: generated},
		Cleaner:   stubCleaner{path: cleaned},
		Publisher: stubPublisher{result: &pipeline.UploadResult{
			Identifier: "vid-456",
			URL:        "https://youtu.be/vid-456",
		}},
	}, logger)

	table, err := schedule.ParseTable(cfg.Schedule.Entries)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	scheduler := schedule.New(table, store, func(ctx context.Context) {
		_, _ = runner.Run(ctx, pipeline.TriggerScheduled, false)
	}, logger,
		schedule.WithInterval(time.Hour),
		schedule.WithClock(func() time.Time {
			// Tuesday 04:15 never matches the Friday slot above.
			return time.Date(2026, 3, 3, 4, 15, 0, 0, time.UTC)
		}),
	)

	d, err := daemon.New(cfg, store, runner, scheduler, logger, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
