package publisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/youtube"
)

// UploadClient is the slice of the youtube client the Publish step uses.
type UploadClient interface {
	Upload(ctx context.Context, req youtube.UploadRequest, onProgress func(percent float64)) (*youtube.Video, error)
}

// Publisher uploads finished videos.
type Publisher struct {
	cfg    *config.Config
	client UploadClient
	logger *slog.Logger
}

// New constructs a Publisher over the configured upload API.
func New(cfg *config.Config, logger *slog.Logger) *Publisher {
	client := youtube.New(youtube.Config{
		AccessToken:    cfg.Publisher.AccessToken,
		TokenPath:      cfg.Publisher.TokenPath,
		BaseURL:        cfg.Publisher.BaseURL,
		TimeoutSeconds: cfg.Publisher.TimeoutSeconds,
	})
	return NewWithClient(cfg, logger, client)
}

// NewWithClient constructs a Publisher with an injected upload client.
func NewWithClient(cfg *config.Config, logger *slog.Logger, client UploadClient) *Publisher {
	return &Publisher{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, "publisher"),
	}
}

// Publish uploads the video and returns its identifier and watch URL.
func (p *Publisher) Publish(ctx context.Context, filePath, title, description string, tags []string, privacy string) (*pipeline.UploadResult, error) {
	if strings.TrimSpace(p.cfg.Publisher.AccessToken) == "" && strings.TrimSpace(p.cfg.Publisher.TokenPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publisher", "publish", "publisher credentials not configured", nil)
	}
	if strings.TrimSpace(privacy) == "" {
		privacy = p.cfg.Publisher.Privacy
	}

	logger := logging.WithContext(ctx, p.logger)
	progress := pipeline.ProgressFromContext(ctx)

	video, err := p.client.Upload(ctx, youtube.UploadRequest{
		FilePath:    filePath,
		Title:       title,
		Description: description,
		Tags:        tags,
		CategoryID:  p.cfg.Publisher.CategoryID,
		Privacy:     privacy,
	}, func(percent float64) {
		progress(percent, "uploading video")
	})
	if err != nil {
		if errors.Is(err, youtube.ErrNoCredentials) {
			return nil, services.Wrap(services.ErrConfiguration, "publisher", "publish", "publisher credentials not configured", err)
		}
		return nil, services.Wrap(services.ErrExternalService, "publisher", "upload", "video upload failed", err)
	}

	url := youtube.WatchURL(video.ID)
	logger.Info("video published",
		logging.String("identifier", video.ID),
		logging.String("url", url),
		logging.String("privacy", privacy),
	)
	return &pipeline.UploadResult{Identifier: video.ID, URL: url}, nil
}
