package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock minute within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the 24h HH:MM form used in configuration.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses a 24h HH:MM value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q must be 24h HH:MM: %w", value, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Table maps weekdays to the single minute a scheduled run fires that day.
type Table map[time.Weekday]TimeOfDay

var weekdaysByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// displayOrder lists weekdays Monday-first for rendering.
var displayOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseTable builds a Table from configuration entries keyed by weekday name.
func ParseTable(entries map[string]string) (Table, error) {
	table := make(Table, len(entries))
	for name, at := range entries {
		day, ok := weekdaysByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		tod, err := ParseTimeOfDay(at)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.ToLower(name), err)
		}
		table[day] = tod
	}
	return table, nil
}

// At returns the configured minute for a weekday.
func (t Table) At(day time.Weekday) (TimeOfDay, bool) {
	at, ok := t[day]
	return at, ok
}

// IsEmpty reports whether no weekday is configured.
func (t Table) IsEmpty() bool {
	return len(t) == 0
}

// Entry pairs a weekday with its configured minute for display.
type Entry struct {
	Weekday time.Weekday
	At      TimeOfDay
}

// Entries returns the configured pairs ordered Monday through Sunday.
func (t Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t))
	for _, day := range displayOrder {
		if at, ok := t[day]; ok {
			entries = append(entries, Entry{Weekday: day, At: at})
		}
	}
	return entries
}

// NextFireTime computes the nearest fire time strictly after now, wrapping
// across week boundaries. ok is false only when the table is empty.
func (t Table) NextFireTime(now time.Time) (time.Time, bool) {
	if len(t) == 0 {
		return time.Time{}, false
	}
	for offset := 0; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset)
		at, ok := t[day.Weekday()]
		if !ok {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
