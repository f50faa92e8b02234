// Package history records completed operations in an append-only JSONL log.
//
// The log answers "which key pair did I back up with" and similar questions
// after the fact. It is advisory: writes that fail produce a warning at the
// call site, never a failed operation.
package history
