// Package llm wraps an OpenRouter-compatible chat completion API for the
// planner.
//
// The client issues single-shot completions (plain text or JSON-constrained)
// and retries transient failures: HTTP 408/429/5xx (honoring Retry-After),
// network timeouts, and responses with empty content. Permanent failures
// such as auth errors surface immediately. DecodeLLMJSON tolerates the
// usual model formatting quirks (code fences, prose around the payload)
// before giving up.
package llm
