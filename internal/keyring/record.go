package keyring

import (
	"encoding/base64"
	"time"

	"keyfort/internal/kdf"
)

// Blob is a byte slice persisted as base64 text in TOML.
type Blob []byte

// MarshalText implements encoding.TextMarshaler.
func (b Blob) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Blob) UnmarshalText(text []byte) error {
	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// KeyRecord is a stored key pair. The store owns the canonical records;
// callers always work on copies.
type KeyRecord struct {
	// ID is the immutable unique identifier of the record.
	ID string `toml:"id"`

	// Name is the unique user-chosen name of the key pair.
	Name string `toml:"name"`

	// PublicKeyPEM is the public key in PEM encoding, always plaintext.
	PublicKeyPEM string `toml:"public_key"`

	// PrivateKeyBlob holds the private key. For unprotected records this is
	// the PEM encoding; for protected records it is AES-GCM ciphertext
	// (nonce prepended) of the PKCS#8 DER.
	PrivateKeyBlob Blob `toml:"private_key"`

	// Protected reports whether PrivateKeyBlob is password-encrypted.
	Protected bool `toml:"protected"`

	// KDFSalt is the Argon2id salt, present iff Protected.
	KDFSalt Blob `toml:"kdf_salt,omitempty"`

	// KDFParams are the Argon2id cost parameters used to protect the key.
	KDFParams kdf.Params `toml:"kdf_params,omitempty"`

	// Hint is optional free text to help recall the password.
	Hint string `toml:"hint,omitempty"`

	// Strong records whether the protecting password met all strength
	// recommendations at protection time.
	Strong bool `toml:"strong,omitempty"`

	// CreatedAt is the record creation time in UTC.
	CreatedAt time.Time `toml:"created_at"`
}

// clone returns a deep copy so callers never share blob storage with the
// store's canonical record.
func (r KeyRecord) clone() KeyRecord {
	out := r
	out.PrivateKeyBlob = append(Blob(nil), r.PrivateKeyBlob...)
	out.KDFSalt = append(Blob(nil), r.KDFSalt...)
	return out
}
