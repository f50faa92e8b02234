package errors

import "errors"

// Key custody errors indicate problems managing key pairs and their records.
var (
	// ErrDuplicateName indicates a key pair with the same name already exists.
	ErrDuplicateName = errors.New("key pair name already in use")

	// ErrKeyNotFound indicates the referenced key pair does not exist in the keyring.
	ErrKeyNotFound = errors.New("key pair not found")

	// ErrKeyMismatch indicates the public and private keys do not belong to the same pair.
	ErrKeyMismatch = errors.New("public and private keys are not a matching pair")

	// ErrUnprotectedKey indicates an operation requires a password-protected key pair.
	ErrUnprotectedKey = errors.New("key pair is not password protected")
)

// Cryptographic errors indicate failures during derivation, encryption or decryption.
var (
	// ErrKeyDerivation indicates the password-based key derivation parameters are malformed.
	ErrKeyDerivation = errors.New("invalid key derivation parameters")

	// ErrInvalidPassword indicates a protected private key could not be unsealed.
	// A wrong password and a corrupted key blob are deliberately indistinguishable.
	ErrInvalidPassword = errors.New("invalid password or corrupted private key")

	// ErrAuthentication indicates an authentication tag did not verify.
	// Covers tampered ciphertext, a wrong key, and a wrong nonce pairing.
	ErrAuthentication = errors.New("authentication failed")

	// ErrWeakPassword indicates the password does not meet the minimum length requirement.
	ErrWeakPassword = errors.New("password does not meet minimum requirements")
)

// Archive errors indicate issues with the container file itself.
var (
	// ErrMalformedArchive indicates the archive structure is missing or invalid
	// before any decryption is attempted.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrNoFilesFound indicates no files matched the provided source patterns.
	ErrNoFilesFound = errors.New("no matching files found")
)
