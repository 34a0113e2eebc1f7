package ledger

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date key format used throughout the ledger.
const DateLayout = "2006-01-02"

// Record captures one calendar day's publish outcome.
type Record struct {
	Date       string
	Published  bool
	Identifier string
	Title      string
	Weekday    string
	Timestamp  time.Time
}

// DateKey formats a moment as the ledger's calendar-date key using the
// moment's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// NewRecord builds a published Record for the given moment.
func NewRecord(at time.Time, identifier, title string) Record {
	return Record{
		Date:       DateKey(at),
		Published:  true,
		Identifier: strings.TrimSpace(identifier),
		Title:      strings.TrimSpace(title),
		Weekday:    at.Weekday().String(),
		Timestamp:  at,
	}
}
