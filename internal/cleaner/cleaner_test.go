package cleaner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/cleaner"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/mediatool"
	"reel/internal/testsupport"
)

type fakeTool struct {
	calls   []mediatool.TranscodeSpec
	fail    func(spec mediatool.TranscodeSpec) error
	updates []mediatool.ProgressUpdate
}

func (f *fakeTool) Transcode(ctx context.Context, spec mediatool.TranscodeSpec, progress func(mediatool.ProgressUpdate)) error {
	f.calls = append(f.calls, spec)
	if f.fail != nil {
		if err := f.fail(spec); err != nil {
			return err
		}
	}
	for _, update := range f.updates {
		if progress != nil {
			progress(update)
		}
	}
	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(spec.OutputPath, []byte("processed video"), 0o644)
}

func failFilter(prefix string, err error) func(mediatool.TranscodeSpec) error {
	return func(spec mediatool.TranscodeSpec) error {
		if strings.HasPrefix(spec.VideoFilter, prefix) {
			return err
		}
		return nil
	}
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reel-job-1.mp4")
	testsupport.WriteFile(t, path, 2048)
	return path
}

func TestCleanerUsesDelogoFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.Enhance = false
	cfg.Cleaner.WatermarkX = 10
	cfg.Cleaner.WatermarkY = 10
	cfg.Cleaner.WatermarkWidth = 120
	cfg.Cleaner.WatermarkHeight = 40

	tool := &fakeTool{}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	input := writeInput(t)
	out, err := c.Clean(context.Background(), input)
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}

	if len(tool.calls) != 1 {
		t.Fatalf("expected 1 transcode call, got %d", len(tool.calls))
	}
	if got := tool.calls[0].VideoFilter; got != "delogo=x=10:y=10:w=120:h=40" {
		t.Fatalf("filter = %q", got)
	}
	want := filepath.Join(cfg.Paths.OutputDir, "reel-job-1-clean.mp4")
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestCleanerFallsBackToCrop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.Enhance = false
	cfg.Cleaner.WatermarkWidth = 120
	cfg.Cleaner.WatermarkHeight = 40

	tool := &fakeTool{fail: failFilter("delogo", errors.New("Logo area is outside of the frame"))}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	out, err := c.Clean(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	if len(tool.calls) != 2 {
		t.Fatalf("expected 2 transcode calls, got %d", len(tool.calls))
	}
	if !strings.HasPrefix(tool.calls[1].VideoFilter, "crop=") {
		t.Fatalf("fallback filter = %q", tool.calls[1].VideoFilter)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestCleanerSkipsDelogoWithoutRectangle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.Enhance = false

	tool := &fakeTool{}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	if _, err := c.Clean(context.Background(), writeInput(t)); err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("expected 1 transcode call, got %d", len(tool.calls))
	}
	if !strings.HasPrefix(tool.calls[0].VideoFilter, "crop=") {
		t.Fatalf("filter = %q, want crop pass", tool.calls[0].VideoFilter)
	}
}

func TestCleanerErrorCarriesLastStrategyDetail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.Enhance = false
	cfg.Cleaner.WatermarkWidth = 120
	cfg.Cleaner.WatermarkHeight = 40

	tool := &fakeTool{fail: func(spec mediatool.TranscodeSpec) error {
		if strings.HasPrefix(spec.VideoFilter, "delogo") {
			return errors.New("delogo rejected")
		}
		return errors.New("crop pass exploded")
	}}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	_, err := c.Clean(context.Background(), writeInput(t))
	if err == nil {
		t.Fatal("expected error when every strategy fails")
	}
	if kind := services.Kind(err); kind != "external_service" {
		t.Fatalf("Kind(err) = %q, want external_service", kind)
	}
	if !strings.Contains(err.Error(), "crop pass exploded") {
		t.Fatalf("expected last strategy detail, got: %v", err)
	}
}

func TestCleanerEnhancePass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.WatermarkX = 4
	cfg.Cleaner.WatermarkY = 4
	cfg.Cleaner.WatermarkWidth = 100
	cfg.Cleaner.WatermarkHeight = 30

	tool := &fakeTool{}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	out, err := c.Clean(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	if len(tool.calls) != 2 {
		t.Fatalf("expected removal + enhance calls, got %d", len(tool.calls))
	}

	cleaned := filepath.Join(cfg.Paths.TempDir, "reel-job-1-clean.mp4")
	if tool.calls[1].InputPath != cleaned {
		t.Fatalf("enhance input = %q, want %q", tool.calls[1].InputPath, cleaned)
	}
	if !strings.Contains(tool.calls[1].VideoFilter, "unsharp") {
		t.Fatalf("enhance filter = %q", tool.calls[1].VideoFilter)
	}
	want := filepath.Join(cfg.Paths.OutputDir, "reel-job-1-final.mp4")
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestCleanerEnhanceFailureKeepsCleanedVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	tool := &fakeTool{fail: failFilter("hqdn3d", errors.New("unsharp blew up"))}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	out, err := c.Clean(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	want := filepath.Join(cfg.Paths.TempDir, "reel-job-1-clean.mp4")
	if out != want {
		t.Fatalf("output = %q, want cleaned video %q", out, want)
	}
}

func TestCleanerScalesPhaseProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleaner.WatermarkX = 4
	cfg.Cleaner.WatermarkY = 4
	cfg.Cleaner.WatermarkWidth = 100
	cfg.Cleaner.WatermarkHeight = 30

	tool := &fakeTool{updates: []mediatool.ProgressUpdate{{Percent: 50}}}
	c := cleaner.NewWithTool(cfg, logging.NewNop(), tool)

	type entry struct {
		percent float64
		message string
	}
	var entries []entry
	ctx := pipeline.WithProgress(context.Background(), func(percent float64, message string) {
		entries = append(entries, entry{percent, message})
	})

	if _, err := c.Clean(ctx, writeInput(t)); err != nil {
		t.Fatalf("Clean() error: %v", err)
	}

	var sawRemoval, sawEnhance bool
	for _, e := range entries {
		if e.percent == 35 && strings.HasPrefix(e.message, "removing watermark") {
			sawRemoval = true
		}
		if e.percent == 85 && e.message == "enhancing video" {
			sawEnhance = true
		}
	}
	if !sawRemoval || !sawEnhance {
		t.Fatalf("phase progress not scaled: %+v", entries)
	}
}

func TestCleanerMissingInputIsResourceError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	c := cleaner.NewWithTool(cfg, logging.NewNop(), &fakeTool{})

	_, err := c.Clean(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if kind := services.Kind(err); kind != "resource" {
		t.Fatalf("Kind(err) = %q, want resource", kind)
	}
}
