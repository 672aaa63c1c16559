// Package pipeline drives a production through its six stages.
//
// The Orchestrator owns no production state. Every operation receives the
// *production.Production it acts on, checks that the production is in the
// stage the operation belongs to, and delegates to the ledger, generation
// gateway, storyboard manager, render controller, or publisher. Advance asks
// the approval gate whether the current stage is complete and reports a
// *BlockedError naming every unmet requirement when it is not.
//
// Callers persist the production after each operation.
package pipeline
