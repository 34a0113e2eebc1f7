// Package daemon coordinates the long-running Reel process.
//
// It wires configuration, the upload ledger, the pipeline runner, and the
// weekly scheduler into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon answers status snapshots, accepts
// manual run triggers, serves ledger history, and owns the notification
// test hook.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
