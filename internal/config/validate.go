package config

import (
	"errors"
	"fmt"
	"time"
)

var weekdayNames = map[string]struct{}{
	"monday":    {},
	"tuesday":   {},
	"wednesday": {},
	"thursday":  {},
	"friday":    {},
	"saturday":  {},
	"sunday":    {},
}

var privacyLevels = map[string]struct{}{
	"private":  {},
	"unlisted": {},
	"public":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateCleaner(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSchedule() error {
	for day, at := range c.Schedule.Entries {
		if _, ok := weekdayNames[day]; !ok {
			return fmt.Errorf("schedule.entries: unknown weekday %q", day)
		}
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("schedule.entries: %s: time %q must be 24h HH:MM", day, at)
		}
	}
	return nil
}

func (c *Config) validateCleaner() error {
	if c.Cleaner.WatermarkX < 0 || c.Cleaner.WatermarkY < 0 {
		return errors.New("cleaner: watermark position must not be negative")
	}
	if c.Cleaner.WatermarkWidth < 0 || c.Cleaner.WatermarkHeight < 0 {
		return errors.New("cleaner: watermark size must not be negative")
	}
	return nil
}

func (c *Config) validatePublisher() error {
	if _, ok := privacyLevels[c.Publisher.Privacy]; !ok {
		return fmt.Errorf("publisher.privacy: must be one of private, unlisted, public (got %q)", c.Publisher.Privacy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
