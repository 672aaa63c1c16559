// Package preflight provides readiness checks for the external services
// and filesystem paths reelsmith depends on.
//
// The CLI "doctor" command runs RunAll and prints every result. Individual
// checks are also used before long operations: render submission verifies
// disk space for downloads, publish verifies OAuth credentials.
//
// Services that are not configured are reported as failures with a hint,
// never skipped silently.
package preflight
