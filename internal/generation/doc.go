// Package generation turns a request for one asset kind into validated
// ledger content.
//
// The Gateway wraps any Generator with a timeout, checks that the returned
// content matches the requested kind, and classifies every failure as an
// *Error carrying a Reason. It never touches the ledger: callers record the
// outcome themselves.
//
// LLMGenerator is the production Generator. It renders prompts from a
// PromptCatalog, requests schema-constrained JSON from the chat model, and
// synthesises the soundtrack narration through the speech endpoint.
package generation
