// Package services defines shared utilities consumed by the pipeline steps
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, step names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (configuration vs external service vs resource) for run summaries.
//
// Use these helpers when wiring new step logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
