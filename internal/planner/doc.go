// Package planner runs the Plan step: it turns the configured brief into a
// video generation prompt and matching upload metadata via the LLM client.
//
// The prompt completion is fatal to the step when it fails. The metadata
// completion is best-effort: any failure there falls back to metadata
// derived from the prompt text, so a flaky second call never sinks a run.
package planner
