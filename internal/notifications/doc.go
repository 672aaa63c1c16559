// Package notifications delivers production events through ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op otherwise. Per-category toggles in the notifications config section
// silence render, publish, or error events without touching callers.
package notifications
