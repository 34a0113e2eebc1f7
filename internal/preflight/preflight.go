package preflight

import (
	"context"

	"reel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Free space (when a minimum is configured)
	if cfg.Paths.MinFreeSpaceGB > 0 {
		results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Paths.MinFreeSpaceGB))
		if cfg.Paths.TempDir != cfg.Paths.OutputDir {
			results = append(results, CheckFreeSpace("Temp free space", cfg.Paths.TempDir, cfg.Paths.MinFreeSpaceGB))
		}
	}

	results = append(results, CheckFFmpeg(cfg.FFmpegBinary()))

	return results
}
