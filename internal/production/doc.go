// Package production defines the root aggregate for one video: its stage,
// theme, research, asset ledger, storyboard, render job, and publication.
//
// The Production type is the in-memory working form. Record is the flat,
// JSON-friendly form persisted by the store; FromRecord rebuilds the aggregate
// and re-establishes the ledger and storyboard invariants.
package production
