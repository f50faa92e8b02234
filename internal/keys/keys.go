package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/kdf"
	"keyfort/internal/keyring"
	"keyfort/internal/password"
)

// KeySize is the RSA modulus size in bits for generated key pairs.
const KeySize = 4096

// GenerateOptions configures Generate.
type GenerateOptions struct {
	// Password protects the private key when non-empty. Without a password
	// the private key is stored in plaintext PEM; anyone holding the keyring
	// file can then decrypt data encrypted under this key pair.
	Password string

	// Hint is optional free text stored alongside a protected key.
	Hint string

	// KDFParams are the Argon2id cost parameters. Zero value means defaults.
	KDFParams kdf.Params
}

// GenerateResult reports the created record and any password advisory.
type GenerateResult struct {
	Record keyring.KeyRecord

	// PasswordWarning holds the strength recommendation the password missed,
	// empty when the password is strong or absent.
	PasswordWarning string
}

// Generate creates a new RSA key pair, protects the private key when a
// password is given, and stores the record under the given name.
func Generate(store *keyring.Store, name string, opts GenerateOptions) (GenerateResult, error) {
	var result GenerateResult

	strong := false
	if opts.Password != "" {
		check := password.Check(opts.Password)
		if !check.OK {
			return result, fmt.Errorf("%w: %s", kferrors.ErrWeakPassword, check.Warning)
		}
		strong = check.Strong
		result.PasswordWarning = check.Warning
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return result, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	record, err := buildRecord(name, privateKey, opts)
	if err != nil {
		return result, err
	}
	record.Strong = strong

	if err := store.Create(record); err != nil {
		return result, err
	}

	result.Record = record
	return result, nil
}

// buildRecord assembles a KeyRecord from a private key, sealing the private
// key when a password is present.
func buildRecord(name string, privateKey *rsa.PrivateKey, opts GenerateOptions) (keyring.KeyRecord, error) {
	record := keyring.KeyRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	publicPEM, err := EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return record, err
	}
	record.PublicKeyPEM = publicPEM

	if opts.Password == "" {
		record.PrivateKeyBlob = keyring.Blob(EncodePrivateKey(privateKey))
		return record, nil
	}

	params := opts.KDFParams
	if params == (kdf.Params{}) {
		params = kdf.DefaultParams()
	}

	salt, err := kdf.NewSalt()
	if err != nil {
		return record, err
	}

	blob, err := sealPrivateKey(privateKey, []byte(opts.Password), salt, params)
	if err != nil {
		return record, err
	}

	record.PrivateKeyBlob = blob
	record.Protected = true
	record.KDFSalt = salt
	record.KDFParams = params
	record.Hint = opts.Hint
	return record, nil
}

// PrivateKey returns the usable private key for a record. Unprotected records
// decode directly; protected records require the password, re-derive the
// symmetric key from the stored salt and params, and fail with
// ErrInvalidPassword when the authentication tag does not verify.
func PrivateKey(record keyring.KeyRecord, pw string) (*rsa.PrivateKey, error) {
	if !record.Protected {
		return DecodePrivateKey([]byte(record.PrivateKeyBlob))
	}

	if pw == "" {
		return nil, fmt.Errorf("%w: password required for key pair %q", kferrors.ErrInvalidPassword, record.Name)
	}

	der, err := openPrivateKeyBlob(record.PrivateKeyBlob, []byte(pw), record.KDFSalt, record.KDFParams)
	if err != nil {
		return nil, err
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decrypted private key: %w", err)
	}
	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decrypted private key is not an RSA key")
	}
	return rsaKey, nil
}

// Reprotect re-encrypts a record's private key under a new password, running
// a fresh salt and the given params. The current password is required for
// protected records.
func Reprotect(store *keyring.Store, record keyring.KeyRecord, currentPassword, newPassword, hint string, params kdf.Params) (keyring.KeyRecord, error) {
	privateKey, err := PrivateKey(record, currentPassword)
	if err != nil {
		return keyring.KeyRecord{}, err
	}

	check := password.Check(newPassword)
	if !check.OK {
		return keyring.KeyRecord{}, fmt.Errorf("%w: %s", kferrors.ErrWeakPassword, check.Warning)
	}

	if params == (kdf.Params{}) {
		params = kdf.DefaultParams()
	}

	salt, err := kdf.NewSalt()
	if err != nil {
		return keyring.KeyRecord{}, err
	}

	blob, err := sealPrivateKey(privateKey, []byte(newPassword), salt, params)
	if err != nil {
		return keyring.KeyRecord{}, err
	}

	record.PrivateKeyBlob = blob
	record.Protected = true
	record.KDFSalt = salt
	record.KDFParams = params
	record.Hint = hint
	record.Strong = check.Strong

	if err := store.Update(record); err != nil {
		return keyring.KeyRecord{}, err
	}
	return record, nil
}

// sealPrivateKey encrypts the PKCS#8 encoding of the private key with
// AES-256-GCM under an Argon2id-derived key. The blob layout is
// [nonce || ciphertext || tag], the GCM default.
func sealPrivateKey(privateKey *rsa.PrivateKey, pw, salt []byte, params kdf.Params) (keyring.Blob, error) {
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	key, err := kdf.Derive(pw, salt, params)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return keyring.Blob(gcm.Seal(nonce, nonce, der, nil)), nil
}

// openPrivateKeyBlob reverses sealPrivateKey. A wrong password and a
// corrupted blob both surface as ErrInvalidPassword.
func openPrivateKeyBlob(blob keyring.Blob, pw, salt []byte, params kdf.Params) ([]byte, error) {
	key, err := kdf.Derive(pw, salt, params)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: private key blob too short", kferrors.ErrInvalidPassword)
	}

	nonce := blob[:gcm.NonceSize()]
	ciphertext := blob[gcm.NonceSize():]

	der, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, kferrors.ErrInvalidPassword
	}
	return der, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
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
