// Package kdf stretches user passwords into symmetric keys with Argon2id.
//
// Derivation is deterministic for a given (password, salt, params) triple.
// Cost parameters are a persisted part of every protected key record and of
// backup archives, so keys protected under older profiles keep deriving
// correctly after the defaults change.
package kdf
