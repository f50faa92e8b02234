package kdf

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	kferrors "keyfort/internal/errors"
)

// SaltSize is the length in bytes of salts generated by NewSalt.
const SaltSize = 16

// KeySize is the length in bytes of derived keys, sized for AES-256.
const KeySize = 32

// Params holds the Argon2id cost parameters. They are persisted alongside the
// salt so future derivations reproduce the same key.
type Params struct {
	Time    uint32 `toml:"time"`    // Iterations (CPU cost).
	Memory  uint32 `toml:"memory"`  // Memory usage in KiB.
	Threads uint8  `toml:"threads"` // Parallelism.
}

// DefaultParams returns the default cost profile (t=3, m=64MiB, p=4).
func DefaultParams() Params {
	return Params{
		Time:    3,
		Memory:  64 * 1024, // 64 MiB
		Threads: 4,
	}
}

// ParanoidParams returns a slower profile for long-lived keys.
func ParanoidParams() Params {
	return Params{
		Time:    8,
		Memory:  256 * 1024, // 256 MiB
		Threads: 4,
	}
}

// Derive stretches a password into a KeySize-byte symmetric key. It is
// deterministic for identical (password, salt, params) and deliberately slow.
func Derive(password []byte, salt []byte, params Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", kferrors.ErrKeyDerivation)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", kferrors.ErrKeyDerivation)
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("%w: cost parameters must be non-zero", kferrors.ErrKeyDerivation)
	}

	return argon2.IDKey(password, salt, params.Time, params.Memory, params.Threads, KeySize), nil
}

// NewSalt generates a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
