// Package approval decides whether a production may leave its current
// stage. The gate is pure: it reads a Snapshot and reports the requirements
// still outstanding, never mutating anything and never failing.
package approval
