package cleaner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/pipeline"
	"reel/internal/services"
	"reel/internal/services/mediatool"
)

// The crop pass trims the right and bottom band where generation
// watermarks sit, then scales back to the source dimensions. Both
// expressions round to even values for the encoder.
const cropScaleFilter = "crop=trunc(iw*0.9/2)*2:trunc(ih*0.9/2)*2:0:0," +
	"scale=trunc(iw/0.9/2)*2:trunc(ih/0.9/2)*2"

const enhanceFilter = "hqdn3d=1.5:1.5:6:6,unsharp=5:5:0.8:3:3:0.4"

// removalSpan is how much of the step's progress the removal pass
// covers when an enhancement pass follows.
const removalSpan = 70.0

// MediaTool is the slice of the ffmpeg wrapper the Clean step uses.
type MediaTool interface {
	Transcode(ctx context.Context, spec mediatool.TranscodeSpec, progress func(mediatool.ProgressUpdate)) error
}

// Cleaner removes generation watermarks and optionally enhances the
// result.
type Cleaner struct {
	cfg    *config.Config
	tool   MediaTool
	logger *slog.Logger
}

// New constructs a Cleaner over the configured ffmpeg binary.
func New(cfg *config.Config, logger *slog.Logger) *Cleaner {
	return NewWithTool(cfg, logger, mediatool.NewCLI(mediatool.WithBinary(cfg.FFmpegBinary())))
}

// NewWithTool constructs a Cleaner with an injected media tool.
func NewWithTool(cfg *config.Config, logger *slog.Logger, tool MediaTool) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		tool:   tool,
		logger: logging.NewComponentLogger(logger, "cleaner"),
	}
}

type strategy struct {
	name   string
	filter string
}

func (c *Cleaner) strategies() []strategy {
	var out []strategy
	if c.cfg.Cleaner.WatermarkWidth > 0 && c.cfg.Cleaner.WatermarkHeight > 0 {
		out = append(out, strategy{
			name: "delogo",
			filter: fmt.Sprintf("delogo=x=%d:y=%d:w=%d:h=%d",
				c.cfg.Cleaner.WatermarkX,
				c.cfg.Cleaner.WatermarkY,
				c.cfg.Cleaner.WatermarkWidth,
				c.cfg.Cleaner.WatermarkHeight,
			),
		})
	}
	out = append(out, strategy{name: "crop", filter: cropScaleFilter})
	return out
}

// Clean runs the removal strategies in order until one succeeds, then
// the enhancement pass when enabled. The returned path points at the
// final artifact.
func (c *Cleaner) Clean(ctx context.Context, inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "cleaner", "clean", "input video missing", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrResource, "cleaner", "clean", "input path is a directory", nil)
	}

	logger := logging.WithContext(ctx, c.logger)
	progress := pipeline.ProgressFromContext(ctx)
	total := time.Duration(c.cfg.Generator.DurationSeconds) * time.Second
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	cleanedPath := filepath.Join(c.cfg.Paths.OutputDir, stem+"-clean.mp4")
	if c.cfg.Cleaner.Enhance {
		cleanedPath = filepath.Join(c.cfg.Paths.TempDir, stem+"-clean.mp4")
	}
	if err := os.MkdirAll(filepath.Dir(cleanedPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrResource, "cleaner", "clean", "create output directory", err)
	}

	span := 100.0
	if c.cfg.Cleaner.Enhance {
		span = removalSpan
	}

	var lastErr error
	cleaned := false
	for _, strat := range c.strategies() {
		message := "removing watermark (" + strat.name + ")"
		err := c.tool.Transcode(ctx, mediatool.TranscodeSpec{
			InputPath:     inputPath,
			OutputPath:    cleanedPath,
			VideoFilter:   strat.filter,
			TotalDuration: total,
		}, func(update mediatool.ProgressUpdate) {
			if update.Percent >= 0 {
				progress(update.Percent*span/100, message)
			}
		})
		if err == nil {
			logger.Info("watermark removed", logging.String("strategy", strat.name))
			cleaned = true
			break
		}
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrExternalService, "cleaner", strat.name, "watermark removal interrupted", err)
		}
		lastErr = err
		logging.WarnWithContext(logger, "watermark strategy failed; trying next",
			"clean_strategy_fallback",
			logging.Error(err),
			logging.String("strategy", strat.name),
			logging.String(logging.FieldImpact, "falling back to the next removal strategy"),
		)
	}
	if !cleaned {
		return "", services.Wrap(services.ErrExternalService, "cleaner", "remove watermark", "all watermark removal strategies failed", lastErr)
	}

	if !c.cfg.Cleaner.Enhance {
		progress(100, "watermark removed")
		return cleanedPath, nil
	}

	finalPath := filepath.Join(c.cfg.Paths.OutputDir, stem+"-final.mp4")
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrResource, "cleaner", "enhance", "create output directory", err)
	}
	err = c.tool.Transcode(ctx, mediatool.TranscodeSpec{
		InputPath:     cleanedPath,
		OutputPath:    finalPath,
		VideoFilter:   enhanceFilter,
		TotalDuration: total,
	}, func(update mediatool.ProgressUpdate) {
		if update.Percent >= 0 {
			progress(removalSpan+update.Percent*(100-removalSpan)/100, "enhancing video")
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrExternalService, "cleaner", "enhance", "enhancement interrupted", err)
		}
		logging.WarnWithContext(logger, "enhancement failed; keeping the cleaned video",
			"clean_enhance_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "published video skips the enhancement pass"),
		)
		progress(100, "watermark removed")
		return cleanedPath, nil
	}

	logger.Info("video enhanced", logging.String("file", finalPath))
	progress(100, "video enhanced")
	return finalPath, nil
}
