// Package store persists productions in SQLite.
//
// Each production is stored as one JSON record alongside a few indexed
// columns (theme, stage, timestamps) used for listing. A single-row session
// table tracks which production the CLI is currently working on. The schema
// is embedded and versioned; a version mismatch is reported rather than
// migrated.
package store
