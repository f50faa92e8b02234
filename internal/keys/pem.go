package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/kdf"
	"keyfort/internal/keyring"
	"keyfort/internal/password"
)

// PEM block types. Protected private keys export as a Keyfort-specific block
// carrying the KDF salt and cost parameters in its headers, so the encoding
// is independently decryptable given the password.
const (
	publicBlockType    = "PUBLIC KEY"
	privateBlockType   = "RSA PRIVATE KEY"
	encryptedBlockType = "KEYFORT ENCRYPTED PRIVATE KEY"
)

// EncodePublicKey encodes an RSA public key as PKIX PEM.
func EncodePublicKey(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	block := &pem.Block{Type: publicBlockType, Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// DecodePublicKey parses a PKIX PEM public key.
func DecodePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicBlockType {
		return nil, fmt.Errorf("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}

// EncodePrivateKey encodes an RSA private key as plaintext PKCS#1 PEM.
func EncodePrivateKey(privateKey *rsa.PrivateKey) string {
	block := &pem.Block{
		Type:  privateBlockType,
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}
	return string(pem.EncodeToMemory(block))
}

// DecodePrivateKey parses a plaintext PEM private key, accepting both PKCS#1
// and PKCS#8 encodings.
func DecodePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block containing private key")
	}

	switch block.Type {
	case privateBlockType:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported private key PEM block %q", block.Type)
	}
}

// Export encodes a record's keys for transfer outside the application. The
// public key is always plaintext PEM. A protected private key is exported
// still-encrypted with its salt and KDF params in the block headers; the
// decrypted key never leaves the record.
func Export(record keyring.KeyRecord) (publicPEM string, privatePEM string, err error) {
	publicPEM = record.PublicKeyPEM

	if len(record.PrivateKeyBlob) == 0 {
		return publicPEM, "", nil
	}

	if !record.Protected {
		return publicPEM, string(record.PrivateKeyBlob), nil
	}

	block := &pem.Block{
		Type: encryptedBlockType,
		Headers: map[string]string{
			"KDF":     "argon2id",
			"Salt":    base64.StdEncoding.EncodeToString(record.KDFSalt),
			"Time":    strconv.FormatUint(uint64(record.KDFParams.Time), 10),
			"Memory":  strconv.FormatUint(uint64(record.KDFParams.Memory), 10),
			"Threads": strconv.FormatUint(uint64(record.KDFParams.Threads), 10),
		},
		Bytes: record.PrivateKeyBlob,
	}
	return publicPEM, string(pem.EncodeToMemory(block)), nil
}

// ExportToDir writes a record's keys to <name>_public.pem and
// <name>_PRIVATE.pem in the destination directory. Existing files are never
// overwritten.
func ExportToDir(record keyring.KeyRecord, destination string) error {
	info, err := os.Stat(destination)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("destination must be a directory: %s", destination)
	}

	publicPEM, privatePEM, err := Export(record)
	if err != nil {
		return err
	}

	publicPath := filepath.Join(destination, record.Name+"_public.pem")
	if err := writeExclusive(publicPath, []byte(publicPEM)); err != nil {
		return err
	}

	if privatePEM != "" {
		privatePath := filepath.Join(destination, record.Name+"_PRIVATE.pem")
		if err := writeExclusive(privatePath, []byte(privatePEM)); err != nil {
			return err
		}
	}
	return nil
}

// ExportAll writes every key pair into its own subdirectory of destination.
func ExportAll(store *keyring.Store, destination string) error {
	info, err := os.Stat(destination)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("destination must be a directory: %s", destination)
	}

	for _, record := range store.List() {
		dir := filepath.Join(destination, record.Name)
		if err := os.Mkdir(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory for key pair %q: %w", record.Name, err)
		}
		if err := ExportToDir(record, dir); err != nil {
			return err
		}
	}
	return nil
}

// ImportOptions configures Import.
type ImportOptions struct {
	// PrivatePEM is the optional private key, plaintext or a Keyfort
	// encrypted export.
	PrivatePEM []byte

	// Password decrypts an encrypted private PEM, or protects a plaintext
	// one on import.
	Password string

	// Hint is stored on protected records.
	Hint string

	// KDFParams apply when protecting a plaintext key. Zero value means
	// defaults.
	KDFParams kdf.Params
}

// Import validates and stores an externally supplied key pair under a new
// name. When both keys are given, they must be a matching pair; otherwise
// the import fails with ErrKeyMismatch before anything is inserted.
func Import(store *keyring.Store, name string, publicPEM []byte, opts ImportOptions) (keyring.KeyRecord, error) {
	publicKey, err := DecodePublicKey(publicPEM)
	if err != nil {
		return keyring.KeyRecord{}, fmt.Errorf("failed to parse public key: %w", err)
	}

	record := keyring.KeyRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	normalizedPublic, err := EncodePublicKey(publicKey)
	if err != nil {
		return keyring.KeyRecord{}, err
	}
	record.PublicKeyPEM = normalizedPublic

	if len(opts.PrivatePEM) > 0 {
		if err := importPrivate(&record, publicKey, opts); err != nil {
			return keyring.KeyRecord{}, err
		}
	}

	if err := store.Create(record); err != nil {
		return keyring.KeyRecord{}, err
	}
	return record, nil
}

// importPrivate fills the private key fields of the record and verifies the
// pair matches the public key.
func importPrivate(record *keyring.KeyRecord, publicKey *rsa.PublicKey, opts ImportOptions) error {
	block, _ := pem.Decode(opts.PrivatePEM)
	if block == nil {
		return fmt.Errorf("failed to decode PEM block containing private key")
	}

	if block.Type == encryptedBlockType {
		return importEncrypted(record, publicKey, block, opts)
	}

	privateKey, err := DecodePrivateKey(opts.PrivatePEM)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		return kferrors.ErrKeyMismatch
	}

	if opts.Password == "" {
		record.PrivateKeyBlob = keyring.Blob(EncodePrivateKey(privateKey))
		return nil
	}

	check := password.Check(opts.Password)
	if !check.OK {
		return fmt.Errorf("%w: %s", kferrors.ErrWeakPassword, check.Warning)
	}

	params := opts.KDFParams
	if params == (kdf.Params{}) {
		params = kdf.DefaultParams()
	}

	salt, err := kdf.NewSalt()
	if err != nil {
		return err
	}
	blob, err := sealPrivateKey(privateKey, []byte(opts.Password), salt, params)
	if err != nil {
		return err
	}

	record.PrivateKeyBlob = blob
	record.Protected = true
	record.KDFSalt = salt
	record.KDFParams = params
	record.Hint = opts.Hint
	record.Strong = check.Strong
	return nil
}

// importEncrypted stores a still-encrypted Keyfort export. The password is
// required so the pair match can be verified before insertion.
func importEncrypted(record *keyring.KeyRecord, publicKey *rsa.PublicKey, block *pem.Block, opts ImportOptions) error {
	salt, params, err := parseEncryptedHeaders(block.Headers)
	if err != nil {
		return err
	}

	if opts.Password == "" {
		return fmt.Errorf("%w: password required to import an encrypted private key", kferrors.ErrInvalidPassword)
	}

	der, err := openPrivateKeyBlob(keyring.Blob(block.Bytes), []byte(opts.Password), salt, params)
	if err != nil {
		return err
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return fmt.Errorf("failed to parse decrypted private key: %w", err)
	}
	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("decrypted private key is not an RSA key")
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		return kferrors.ErrKeyMismatch
	}

	record.PrivateKeyBlob = keyring.Blob(block.Bytes)
	record.Protected = true
	record.KDFSalt = salt
	record.KDFParams = params
	record.Hint = opts.Hint
	record.Strong = password.Check(opts.Password).Strong
	return nil
}

// parseEncryptedHeaders reads the salt and Argon2id params out of an
// encrypted export's PEM headers.
func parseEncryptedHeaders(headers map[string]string) ([]byte, kdf.Params, error) {
	var params kdf.Params

	if kdfName := headers["KDF"]; kdfName != "argon2id" {
		return nil, params, fmt.Errorf("unsupported KDF %q in encrypted private key", kdfName)
	}

	salt, err := base64.StdEncoding.DecodeString(headers["Salt"])
	if err != nil || len(salt) == 0 {
		return nil, params, fmt.Errorf("invalid salt in encrypted private key headers")
	}

	timeCost, err := strconv.ParseUint(headers["Time"], 10, 32)
	if err != nil {
		return nil, params, fmt.Errorf("invalid Time header in encrypted private key")
	}
	memory, err := strconv.ParseUint(headers["Memory"], 10, 32)
	if err != nil {
		return nil, params, fmt.Errorf("invalid Memory header in encrypted private key")
	}
	threads, err := strconv.ParseUint(headers["Threads"], 10, 8)
	if err != nil {
		return nil, params, fmt.Errorf("invalid Threads header in encrypted private key")
	}

	params.Time = uint32(timeCost)
	params.Memory = uint32(memory)
	params.Threads = uint8(threads)
	return salt, params, nil
}

// writeExclusive writes data to path, failing if the file already exists.
func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
