package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = "date, published, identifier, title, weekday, timestamp"

const defaultRecentLimit = 10

// HasPublishedOn reports whether a successful publish is already recorded
// for the given calendar-date key.
func (s *Store) HasPublishedOn(ctx context.Context, date string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM uploads WHERE date = ? AND published = 1`,
		strings.TrimSpace(date),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query published: %w", err)
	}
	return count > 0, nil
}

// RecordPublish writes the record for its date. Calling it twice for the
// same date overwrites the earlier values rather than accumulating rows.
func (s *Store) RecordPublish(ctx context.Context, rec Record) error {
	date := strings.TrimSpace(rec.Date)
	if date == "" {
		return errors.New("record date is empty")
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return fmt.Errorf("record date %q must be %s: %w", date, DateLayout, err)
	}

	weekday := strings.TrimSpace(rec.Weekday)
	if weekday == "" {
		weekday = day.Weekday().String()
	}
	stamp := rec.Timestamp
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}

	if err := s.execWithRetry(
		ctx,
		`INSERT INTO uploads (date, published, identifier, title, weekday, timestamp)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(date) DO UPDATE SET
             published = excluded.published,
             identifier = excluded.identifier,
             title = excluded.title,
             weekday = excluded.weekday,
             timestamp = excluded.timestamp`,
		date,
		boolToInt(rec.Published),
		nullableString(strings.TrimSpace(rec.Identifier)),
		nullableString(strings.TrimSpace(rec.Title)),
		weekday,
		stamp.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record publish: %w", err)
	}
	return nil
}

// GetByDate fetches the record for a calendar-date key, or nil when the
// date has none.
func (s *Store) GetByDate(ctx context.Context, date string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM uploads WHERE date = ?`,
		strings.TrimSpace(date),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// RecentRecords returns up to limit records ordered most recent first.
// A non-positive limit applies a small default.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM uploads ORDER BY date DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LastPublished returns the most recent published record, or nil when
// nothing has been published yet.
func (s *Store) LastPublished(ctx context.Context) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM uploads WHERE published = 1 ORDER BY date DESC LIMIT 1`,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last published: %w", err)
	}
	return &rec, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		date       string
		published  sql.NullInt64
		identifier sql.NullString
		title      sql.NullString
		weekday    sql.NullString
		rawStamp   sql.NullString
	)

	if err := scanner.Scan(&date, &published, &identifier, &title, &weekday, &rawStamp); err != nil {
		return Record{}, err
	}

	rec := Record{
		Date:       date,
		Identifier: identifier.String,
		Title:      title.String,
		Weekday:    weekday.String,
	}
	if published.Valid {
		rec.Published = published.Int64 != 0
	}
	if stamp, err := parseTimeString(rawStamp.String); err == nil {
		rec.Timestamp = stamp
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
