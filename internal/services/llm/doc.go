// Package llm wraps an OpenAI-compatible API for structured text generation
// and speech synthesis.
//
// This package is used by:
//   - Research stage: summarize a theme into key points and angles
//   - Proposal stage: generate script, description, tags, and title assets
//   - Soundtrack generation: synthesize narration audio
//
// # Structured Output
//
// CompleteStructured reflects a JSON schema from the target Go type (via
// invopop/jsonschema) and requests a strict json_schema response format, so
// the model's reply decodes directly into the caller's struct. Replies are
// still passed through DecodeLLMJSON, which tolerates code fences and prose
// around the JSON body.
//
// # Errors
//
// Failures are tagged with the shared services markers: HTTP 429 becomes
// services.ErrRateLimited, 5xx and network failures services.ErrTransient,
// deadline expiry services.ErrTimeout, other 4xx and content-filter stops
// services.ErrTerminal, and undecodable replies services.ErrInvalidResponse.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty replies, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). Context cancellation aborts retries immediately.
package llm
