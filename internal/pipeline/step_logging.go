package pipeline

import (
	"log/slog"
	"strings"
)

// stepOverrideLevel returns the configured level override for a step, or
// empty when none applies. Keys are matched case-insensitively so config
// files can spell step names however they like.
func stepOverrideLevel(overrides map[string]string, step string) string {
	if len(overrides) == 0 {
		return ""
	}
	step = strings.ToLower(strings.TrimSpace(step))
	if step == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == step {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseStepLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
