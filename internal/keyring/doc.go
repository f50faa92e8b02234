// Package keyring stores key pair records in a single TOML file.
//
// The Store is the explicit handle passed to every operation that needs key
// records; there is no process-wide singleton. Records are keyed by id with
// a unique secondary index on the user-chosen name. Every mutation is a
// single-record transaction: the whole file is rewritten via a temp file and
// rename, so a crash can never leave a half-written keyring, and callers
// always receive copies of records, never live references.
//
// Snapshot and Replace serialize and swap the full store, which is how backup
// and restore treat the keyring as one blob. WriteSafetyCopy emits the
// numbered plaintext copies taken before any restore.
package keyring
