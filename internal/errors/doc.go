// Package errors defines sentinel errors shared across Keyfort packages.
//
// Callers are expected to classify failures with errors.Is rather than by
// matching message text. Errors are wrapped at call sites with fmt.Errorf and
// %w so the sentinel survives the wrapping.
package errors
