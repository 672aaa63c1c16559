// Package services defines shared utilities consumed by the pipeline
// components and the external provider clients.
//
// Key responsibilities:
//   - Context helpers that stamp production IDs, stages, asset kinds, render
//     job IDs, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let every component
//     report failures that callers can classify (validation, invalid
//     transition, transient, terminal) without string matching.
//
// Provider clients live in subpackages (llm, stock, pexels, pixabay,
// compositor, youtube). Use these helpers when wiring new integrations so
// retries and error reporting stay uniform across the pipeline.
package services
