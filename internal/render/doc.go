// Package render owns the lifecycle of remote render jobs.
//
// A Controller submits a fully bound storyboard plus soundtrack to a
// Compositor, then polls the provider until the job reaches a terminal state.
// Jobs leave pending only once the provider confirms submission; completed and
// error are absorbing. Polls for the same job are coalesced so progress never
// regresses, and transient poll failures leave the job untouched.
package render
