// Command reelsmith drives video productions from theme to upload.
//
// Every command works on the current production unless --production names
// another one (a unique ID prefix is enough). Mutating commands hold an
// exclusive file lock on the data directory and persist the production
// after the operation, including after a failure so that failed assets and
// errored render jobs are recorded.
package main
