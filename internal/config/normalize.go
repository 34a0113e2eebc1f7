package config

import (
	"fmt"
	"strings"
)

// normalize expands paths, trims string fields, and backfills defaults so the
// rest of the program never re-checks for empty values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(valueOr(c.Paths.DataDir, defaultDataDir)); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(valueOr(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return err
	}
	if c.Paths.TempDir, err = expandPath(valueOr(c.Paths.TempDir, defaultTempDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	if c.Paths.MinFreeSpaceGB <= 0 {
		c.Paths.MinFreeSpaceGB = defaultMinFreeSpaceGB
	}

	c.Planner.APIKey = strings.TrimSpace(c.Planner.APIKey)
	c.Planner.BaseURL = valueOr(c.Planner.BaseURL, defaultPlannerBaseURL)
	c.Planner.Model = valueOr(c.Planner.Model, defaultPlannerModel)
	c.Planner.Referer = strings.TrimSpace(c.Planner.Referer)
	c.Planner.Title = valueOr(c.Planner.Title, defaultPlannerTitle)
	if c.Planner.TimeoutSeconds <= 0 {
		c.Planner.TimeoutSeconds = defaultPlannerTimeout
	}
	c.Planner.Instructions = valueOr(c.Planner.Instructions, defaultInstructions)

	c.Generator.APIKey = strings.TrimSpace(c.Generator.APIKey)
	c.Generator.BaseURL = valueOr(c.Generator.BaseURL, defaultGeneratorBaseURL)
	c.Generator.Model = valueOr(c.Generator.Model, defaultGeneratorModel)
	if c.Generator.DurationSeconds <= 0 {
		c.Generator.DurationSeconds = defaultDurationSeconds
	}
	c.Generator.Resolution = valueOr(c.Generator.Resolution, defaultResolution)
	if c.Generator.PollIntervalSeconds <= 0 {
		c.Generator.PollIntervalSeconds = defaultGeneratorPoll
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = defaultGeneratorTimeout
	}

	c.Cleaner.FFmpegBinary = valueOr(c.Cleaner.FFmpegBinary, defaultFFmpegBinary)

	c.Publisher.AccessToken = strings.TrimSpace(c.Publisher.AccessToken)
	if c.Publisher.TokenPath != "" {
		if c.Publisher.TokenPath, err = expandPath(c.Publisher.TokenPath); err != nil {
			return err
		}
	}
	c.Publisher.BaseURL = valueOr(c.Publisher.BaseURL, defaultPublisherBaseURL)
	c.Publisher.Privacy = strings.ToLower(valueOr(c.Publisher.Privacy, defaultPrivacy))
	c.Publisher.CategoryID = valueOr(c.Publisher.CategoryID, defaultCategoryID)
	if c.Publisher.TimeoutSeconds <= 0 {
		c.Publisher.TimeoutSeconds = defaultPublisherTimeout
	}

	if c.Schedule.CheckIntervalSeconds <= 0 {
		c.Schedule.CheckIntervalSeconds = defaultCheckIntervalSeconds
	}
	if len(c.Schedule.Entries) > 0 {
		entries := make(map[string]string, len(c.Schedule.Entries))
		for day, at := range c.Schedule.Entries {
			key := strings.ToLower(strings.TrimSpace(day))
			value := strings.TrimSpace(at)
			if key == "" || value == "" {
				continue
			}
			if _, dup := entries[key]; dup {
				return fmt.Errorf("schedule.entries: duplicate weekday %q", key)
			}
			entries[key] = value
		}
		c.Schedule.Entries = entries
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}

	c.Logging.Format = strings.ToLower(valueOr(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(valueOr(c.Logging.Level, defaultLogLevel))
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.StepOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.StepOverrides))
		for step, level := range c.Logging.StepOverrides {
			step = strings.ToLower(strings.TrimSpace(step))
			level = strings.ToLower(strings.TrimSpace(level))
			if step == "" || level == "" {
				continue
			}
			overrides[step] = level
		}
		c.Logging.StepOverrides = overrides
	}

	return nil
}

func valueOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
