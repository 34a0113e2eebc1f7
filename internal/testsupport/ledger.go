package testsupport

import (
	"context"
	"testing"
	"time"

	"reel/internal/config"
	"reel/internal/ledger"
)

// MustOpenLedger opens the upload ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordPublish writes a published record for tests using the provided store.
func RecordPublish(t testing.TB, store *ledger.Store, day time.Time, identifier, title string) ledger.Record {
	t.Helper()

	rec := ledger.Record{
		Date:       ledger.DateKey(day),
		Published:  true,
		Identifier: identifier,
		Title:      title,
		Weekday:    day.Weekday().String(),
		Timestamp:  day,
	}
	if err := store.RecordPublish(context.Background(), rec); err != nil {
		t.Fatalf("store.RecordPublish: %v", err)
	}
	return rec
}
