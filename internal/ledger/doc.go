// Package ledger persists the upload history in SQLite and answers the
// once-per-day dedup question the scheduler asks before firing.
//
// The Store owns database connections, schema initialization, and the
// uploads table keyed by calendar date. One record exists per date;
// recording a publish for a date that already has a record overwrites it.
// The ledger is the only state the pipeline persists across runs, so the
// daemon process is its sole writer.
//
// Schema changes bump the version in schema.go; users delete the database
// to adopt the new schema.
package ledger
