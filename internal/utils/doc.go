// Package utils provides shared helpers for the Keyfort CLI.
//
// # Terminal Utilities
//
// Functions for terminal detection and interaction:
//   - ReadPassphrase: prompts for a password without echo
//   - IsTerminal: checks if stdin is a terminal
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - IsValidKeyName: validates user-chosen key pair names
package utils
