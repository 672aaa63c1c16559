// Package ledger tracks the generate/approve lifecycle of the five typed
// assets that make up a production proposal.
//
// Every kind is always present in a Ledger (default pending). Each kind has
// its own lock so work on one asset never blocks another, and all operations
// are in-memory and fast; callers perform generation outside the ledger and
// record the outcome with SetGenerated or SetFailed.
package ledger
