// Package compositor talks to a Shotstack-compatible edit API: it turns a
// render bundle into a timeline, submits it, and reads back job status.
// Local soundtrack files are pushed through the ingest API first.
package compositor
