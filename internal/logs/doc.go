// Package logs reads the reelsmith log file for the `logs` command.
//
// Last returns the final lines with bounded memory and the offset to resume
// from; Follow streams lines appended after that offset until the context
// ends, restarting from the top when the file is truncated or rotated.
// Filter narrows JSON records to one production or a minimum level and
// falls back to substring matching for console-formatted lines.
package logs
