package generator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/videogen"
)

// RenderClient is the slice of the videogen client the Generate step uses.
type RenderClient interface {
	Submit(ctx context.Context, prompt string, durationSeconds int, resolution string) (*videogen.Job, error)
	Await(ctx context.Context, jobID string, onProgress videogen.ProgressFunc) (*videogen.Job, error)
	Download(ctx context.Context, jobID, destPath string) error
}

// Generator renders planned prompts into video files.
type Generator struct {
	cfg    *config.Config
	client RenderClient
	logger *slog.Logger
}

// New constructs a Generator over the configured generation API.
func New(cfg *config.Config, logger *slog.Logger) *Generator {
	client := videogen.New(videogen.Config{
		APIKey:              cfg.Generator.APIKey,
		BaseURL:             cfg.Generator.BaseURL,
		Model:               cfg.Generator.Model,
		PollIntervalSeconds: cfg.Generator.PollIntervalSeconds,
		TimeoutSeconds:      cfg.Generator.TimeoutSeconds,
	})
	return NewWithClient(cfg, logger, client)
}

// NewWithClient constructs a Generator with an injected render client.
func NewWithClient(cfg *config.Config, logger *slog.Logger, client RenderClient) *Generator {
	return &Generator{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "generator"),
	}
}

// Generate submits the prompt as a render job, forwards render progress
// to the step while the job runs, and returns the downloaded artifact
// path.
func (g *Generator) Generate(ctx context.Context, promptText string, durationSeconds int, resolution string) (string, error) {
	if strings.TrimSpace(g.cfg.Generator.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "generator", "generate", "generator api key not configured", nil)
	}

	logger := logging.WithContext(ctx, g.logger)
	progress := pipeline.ProgressFromContext(ctx)

	job, err := g.client.Submit(ctx, promptText, durationSeconds, resolution)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "generator", "submit job", "video generation request failed", err)
	}
	logger.Info("render job submitted",
		logging.String("job_id", job.ID),
		logging.Int("duration_seconds", durationSeconds),
		logging.String("resolution", resolution),
	)
	progress(0, "render queued")

	job, err = g.client.Await(ctx, job.ID, func(percent float64, status string) {
		progress(percent, renderMessage(status))
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "generator", "render", "video generation failed", err)
	}

	destPath := filepath.Join(g.cfg.Paths.TempDir, fmt.Sprintf("reel-%s.mp4", job.ID))
	progress(100, "downloading artifact")
	if err := g.client.Download(ctx, job.ID, destPath); err != nil {
		return "", services.Wrap(services.ErrExternalService, "generator", "download", "artifact download failed", err)
	}
	logger.Info("render artifact downloaded", logging.String("file", destPath))
	return destPath, nil
}

func renderMessage(status string) string {
	switch status {
	case videogen.StatusQueued:
		return "render queued"
	case videogen.StatusCompleted:
		return "render complete"
	default:
		return "rendering"
	}
}
