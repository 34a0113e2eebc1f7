// Package schedule drives scheduled pipeline runs from a weekly time table.
//
// A Table maps each weekday to at most one wall-clock minute. The Scheduler
// polls the clock at a fixed interval, fires its trigger callback when the
// current weekday and minute match a table entry, and consults the upload
// ledger first so a day that already published is skipped without noise.
// A fired minute never fires twice, even when the polling interval is
// shorter than a minute.
//
// All comparisons use the clock source's local wall time; entries are
// interpreted in whatever zone the process observes.
package schedule
