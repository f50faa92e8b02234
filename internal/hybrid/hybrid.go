package hybrid

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"fmt"
	"io"

	kferrors "keyfort/internal/errors"
)

// AlgorithmID identifies the symmetric construction used by this package.
// It is recorded in every archive manifest so decryption needs no caller
// input beyond the archive itself.
const AlgorithmID = "AES-256-GCM"

// SessionKeySize is the size in bytes of the per-operation symmetric key.
const SessionKeySize = 32

// NonceSize is the GCM nonce size in bytes.
const NonceSize = 12

// TagSize is the GCM authentication tag size in bytes.
const TagSize = 16

// Envelope is the result of one hybrid encryption: a session key wrapped
// under the recipient's public key, and the authenticated ciphertext of the
// payload. Each Envelope is self-contained; none of its fields are ever
// reused across calls.
type Envelope struct {
	WrappedKey []byte
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Encrypt encrypts a payload for the holder of the matching private key. A
// fresh random session key and nonce are generated for this call only; the
// session key is wrapped with RSA-OAEP (SHA-512) and discarded.
// Encrypt is stateless and safe to call concurrently.
func Encrypt(payload []byte, publicKey *rsa.PublicKey) (Envelope, error) {
	var env Envelope

	sessionKey := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(rand.Reader, sessionKey); err != nil {
		return env, fmt.Errorf("failed to generate session key: %w", err)
	}
	defer zero(sessionKey)

	gcm, err := newGCM(sessionKey)
	if err != nil {
		return env, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return env, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, payload, nil)

	wrapped, err := rsa.EncryptOAEP(sha512.New(), rand.Reader, publicKey, sessionKey, nil)
	if err != nil {
		return env, fmt.Errorf("failed to wrap session key: %w", err)
	}

	env.WrappedKey = wrapped
	env.Nonce = nonce
	env.Ciphertext = sealed[:len(sealed)-TagSize]
	env.Tag = sealed[len(sealed)-TagSize:]
	return env, nil
}

// Decrypt unwraps the session key with the private key and authenticates the
// payload before returning any plaintext. Tampered ciphertext, a wrong key,
// or a wrong nonce pairing all fail with ErrAuthentication and release no
// partial plaintext.
func Decrypt(env Envelope, privateKey *rsa.PrivateKey) ([]byte, error) {
	sessionKey, err := rsa.DecryptOAEP(sha512.New(), rand.Reader, privateKey, env.WrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: session key unwrap failed", kferrors.ErrAuthentication)
	}
	defer zero(sessionKey)

	return DecryptWithSessionKey(env, sessionKey)
}

// DecryptWithSessionKey authenticates and decrypts the payload with an
// already-unwrapped session key. Used when one archive's session key covers
// multiple entries.
func DecryptWithSessionKey(env Envelope, sessionKey []byte) ([]byte, error) {
	gcm, err := newGCM(sessionKey)
	if err != nil {
		return nil, err
	}

	if len(env.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", kferrors.ErrAuthentication, len(env.Nonce))
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := gcm.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, kferrors.ErrAuthentication
	}
	return plaintext, nil
}

// UnwrapSessionKey recovers the session key from an envelope without touching
// the payload. The caller owns zeroing the returned key.
func UnwrapSessionKey(env Envelope, privateKey *rsa.PrivateKey) ([]byte, error) {
	sessionKey, err := rsa.DecryptOAEP(sha512.New(), rand.Reader, privateKey, env.WrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: session key unwrap failed", kferrors.ErrAuthentication)
	}
	return sessionKey, nil
}

// EncryptWithSessionKey authenticates and encrypts a payload under an
// existing session key with a fresh nonce. Used when one wrapped key covers
// multiple archive entries.
func EncryptWithSessionKey(payload, sessionKey []byte) (Envelope, error) {
	var env Envelope

	gcm, err := newGCM(sessionKey)
	if err != nil {
		return env, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return env, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, payload, nil)

	env.Nonce = nonce
	env.Ciphertext = sealed[:len(sealed)-TagSize]
	env.Tag = sealed[len(sealed)-TagSize:]
	return env, nil
}

// NewSessionKey generates a fresh random session key. The caller owns zeroing
// it after use.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return key, nil
}

// WrapSessionKey encrypts a session key under the recipient's public key.
func WrapSessionKey(sessionKey []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha512.New(), rand.Reader, publicKey, sessionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap session key: %w", err)
	}
	return wrapped, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("invalid session key length: expected %d bytes, got %d", SessionKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// zero overwrites key material after use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
