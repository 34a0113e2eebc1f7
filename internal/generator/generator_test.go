package generator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/generator"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/videogen"
	"reel/internal/testsupport"
)

type fakeRenderClient struct {
	submitErr   error
	awaitErr    error
	downloadErr error

	gotPrompt     string
	gotDuration   int
	gotResolution string
	gotDownloadID string

	renderUpdates []videogen.Job
}

func (f *fakeRenderClient) Submit(ctx context.Context, prompt string, durationSeconds int, resolution string) (*videogen.Job, error) {
	f.gotPrompt = prompt
	f.gotDuration = durationSeconds
	f.gotResolution = resolution
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &videogen.Job{ID: "job-42", Status: videogen.StatusQueued}, nil
}

func (f *fakeRenderClient) Await(ctx context.Context, jobID string, onProgress videogen.ProgressFunc) (*videogen.Job, error) {
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	for _, update := range f.renderUpdates {
		if onProgress != nil {
			onProgress(update.Progress, update.Status)
		}
	}
	return &videogen.Job{ID: jobID, Status: videogen.StatusCompleted, Progress: 100}, nil
}

func (f *fakeRenderClient) Download(ctx context.Context, jobID, destPath string) error {
	f.gotDownloadID = jobID
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("rendered video"), 0o644)
}

type progressEntry struct {
	percent float64
	message string
}

func TestGeneratorDownloadsRenderedArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeRenderClient{
		renderUpdates: []videogen.Job{
			{Status: videogen.StatusQueued, Progress: 0},
			{Status: videogen.StatusInProgress, Progress: 55},
			{Status: videogen.StatusCompleted, Progress: 100},
		},
	}
	gen := generator.NewWithClient(cfg, logging.NewNop(), client)

	var updates []progressEntry
	ctx := pipeline.WithProgress(context.Background(), func(percent float64, message string) {
		updates = append(updates, progressEntry{percent, message})
	})

	path, err := gen.Generate(ctx, "a foggy harbor at dawn", 30, "1080p")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if client.gotPrompt != "a foggy harbor at dawn" || client.gotDuration != 30 || client.gotResolution != "1080p" {
		t.Fatalf("render request = %q %d %q", client.gotPrompt, client.gotDuration, client.gotResolution)
	}
	if client.gotDownloadID != "job-42" {
		t.Fatalf("download job = %q, want job-42", client.gotDownloadID)
	}
	if !strings.HasPrefix(path, cfg.Paths.TempDir) {
		t.Fatalf("artifact path %q not under temp dir %q", path, cfg.Paths.TempDir)
	}
	if !strings.Contains(filepath.Base(path), "job-42") {
		t.Fatalf("artifact name %q missing job id", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	var sawRendering, sawDownloading bool
	for _, update := range updates {
		if update.message == "rendering" && update.percent == 55 {
			sawRendering = true
		}
		if update.message == "downloading artifact" {
			sawDownloading = true
		}
	}
	if !sawRendering {
		t.Fatalf("render progress not forwarded: %+v", updates)
	}
	if !sawDownloading {
		t.Fatalf("download phase not reported: %+v", updates)
	}
}

func TestGeneratorRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generator.APIKey = ""
	gen := generator.NewWithClient(cfg, logging.NewNop(), &fakeRenderClient{})

	_, err := gen.Generate(context.Background(), "prompt", 30, "1080p")
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if kind := services.Kind(err); kind != "configuration" {
		t.Fatalf("Kind(err) = %q, want configuration", kind)
	}
}

func TestGeneratorWrapsSubmitFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeRenderClient{submitErr: fmt.Errorf("videogen submit: http 500: overloaded")}
	gen := generator.NewWithClient(cfg, logging.NewNop(), client)

	_, err := gen.Generate(context.Background(), "prompt", 30, "1080p")
	if err == nil {
		t.Fatal("expected error from failed submit")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got: %v", err)
	}
}

func TestGeneratorWrapsRenderFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeRenderClient{awaitErr: fmt.Errorf("videogen: job job-42 failed: prompt rejected")}
	gen := generator.NewWithClient(cfg, logging.NewNop(), client)

	_, err := gen.Generate(context.Background(), "prompt", 30, "1080p")
	if err == nil {
		t.Fatal("expected error from failed render")
	}
	if kind := services.Kind(err); kind != "external_service" {
		t.Fatalf("Kind(err) = %q, want external_service", kind)
	}
	if !strings.Contains(err.Error(), "prompt rejected") {
		t.Fatalf("render failure detail missing: %v", err)
	}
}

func TestGeneratorWrapsDownloadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeRenderClient{downloadErr: errors.New("connection reset")}
	gen := generator.NewWithClient(cfg, logging.NewNop(), client)

	_, err := gen.Generate(context.Background(), "prompt", 30, "1080p")
	if err == nil {
		t.Fatal("expected error from failed download")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got: %v", err)
	}
}
