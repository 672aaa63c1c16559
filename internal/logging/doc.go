// Package logging assembles structured slog loggers and formatting helpers used
// across reelsmith components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with production IDs, stages, asset kinds, and render job IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// records with the same shape as the rest of the system.
package logging
