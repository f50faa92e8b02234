package archive

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	kferrors "keyfort/internal/errors"
	"keyfort/internal/kdf"
)

// Container layout, little-endian:
//
//	magic "KFAR" | version u16 | manifest length u32 | manifest TOML | payloads
//
// Payloads are the raw ciphertexts of each entry, concatenated in manifest
// order; their sizes live in the manifest. Everything needed to decrypt is in
// the manifest, so a reader needs only this file, the referenced key pair,
// and (if protected) its password.
var magic = [4]byte{'K', 'F', 'A', 'R'}

// CurrentVersion is the container format version.
const CurrentVersion uint16 = 1

// headerSize is the fixed prefix before the manifest: magic + version +
// manifest length.
const headerSize = 4 + 2 + 4

// maxManifestSize bounds the manifest allocation when reading untrusted
// files.
const maxManifestSize = 64 << 20

// Bytes is a byte slice persisted as base64 text in the manifest.
type Bytes []byte

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error {
	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Entry describes one encrypted payload in the container.
type Entry struct {
	// Path is the payload's path relative to the encryption source root,
	// always slash-separated.
	Path string `toml:"path"`

	// Nonce is the GCM nonce used for this entry only.
	Nonce Bytes `toml:"nonce"`

	// Tag is the GCM authentication tag.
	Tag Bytes `toml:"tag"`

	// Size is the ciphertext length in bytes.
	Size uint64 `toml:"size"`
}

// Manifest is the self-describing header of a container.
type Manifest struct {
	// KeyID identifies the key pair whose public key wrapped the session key.
	KeyID string `toml:"key_id"`

	// KeyName is the key pair's name at encryption time, informational only.
	KeyName string `toml:"key_name,omitempty"`

	// Algorithm identifies the symmetric construction.
	Algorithm string `toml:"algorithm"`

	// WrappedKey is the session key encrypted under the key pair's public key.
	WrappedKey Bytes `toml:"wrapped_key"`

	// KDFSalt and KDFParams are carried for backup archives so a standalone
	// decryptor holding the exported private key can re-derive without the
	// keyring. Empty for regular archives.
	KDFSalt   Bytes       `toml:"kdf_salt,omitempty"`
	KDFParams *kdf.Params `toml:"kdf_params,omitempty"`

	// RecoveryPublicPEM and RecoveryPrivatePEM are set on backup archives:
	// the signing key pair's public key and still-encrypted private key, for
	// manual recovery. Restore never reads them.
	RecoveryPublicPEM  string `toml:"recovery_public_pem,omitempty"`
	RecoveryPrivatePEM string `toml:"recovery_private_pem,omitempty"`

	// CreatedAt is the archive creation time in UTC.
	CreatedAt time.Time `toml:"created_at"`

	// Entries describe the payloads in container order.
	Entries []Entry `toml:"entries"`
}

// Write serializes the manifest and payloads to path. The write is atomic
// from the caller's perspective: the container is assembled in a temporary
// file and moved into place, so either the whole file exists or none does.
// payloads must correspond one-to-one with manifest entries; sizes are
// filled in here.
func Write(path string, manifest *Manifest, payloads [][]byte) error {
	if len(payloads) != len(manifest.Entries) {
		return fmt.Errorf("entry count %d does not match payload count %d", len(manifest.Entries), len(payloads))
	}
	for i := range manifest.Entries {
		manifest.Entries[i].Size = uint64(len(payloads[i]))
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now().UTC()
	}

	var manifestBuf bytes.Buffer
	if err := toml.NewEncoder(&manifestBuf).Encode(manifest); err != nil {
		return fmt.Errorf("failed to encode archive manifest: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".kfar-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	header := make([]byte, headerSize)
	copy(header[:4], magic[:])
	binary.LittleEndian.PutUint16(header[4:6], CurrentVersion)
	binary.LittleEndian.PutUint32(header[6:10], uint32(manifestBuf.Len()))

	if _, err := tmp.Write(header); err != nil {
		cleanup()
		return fmt.Errorf("failed to write archive header: %w", err)
	}
	if _, err := tmp.Write(manifestBuf.Bytes()); err != nil {
		cleanup()
		return fmt.Errorf("failed to write archive manifest: %w", err)
	}
	for i, payload := range payloads {
		if _, err := tmp.Write(payload); err != nil {
			cleanup()
			return fmt.Errorf("failed to write archive entry %s: %w", manifest.Entries[i].Path, err)
		}
	}

	if err := tmp.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary archive file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// Read parses a container file. The manifest structure is fully validated
// before returning; no decryption is attempted here, so a structural problem
// surfaces as ErrMalformedArchive, distinct from the ErrAuthentication a
// payload may later produce.
func Read(path string) (*Manifest, [][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read archive at %s: %w", path, err)
	}

	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: file too short", kferrors.ErrMalformedArchive)
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, nil, fmt.Errorf("%w: bad magic", kferrors.ErrMalformedArchive)
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version == 0 || version > CurrentVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", kferrors.ErrMalformedArchive, version)
	}

	manifestLen := binary.LittleEndian.Uint32(data[6:10])
	if manifestLen == 0 || manifestLen > maxManifestSize {
		return nil, nil, fmt.Errorf("%w: bad manifest length %d", kferrors.ErrMalformedArchive, manifestLen)
	}
	if uint64(len(data)) < uint64(headerSize)+uint64(manifestLen) {
		return nil, nil, fmt.Errorf("%w: truncated manifest", kferrors.ErrMalformedArchive)
	}

	var manifest Manifest
	if err := toml.Unmarshal(data[headerSize:headerSize+int(manifestLen)], &manifest); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", kferrors.ErrMalformedArchive, err)
	}
	if err := validate(&manifest); err != nil {
		return nil, nil, err
	}

	payloads := make([][]byte, 0, len(manifest.Entries))
	rest := data[headerSize+int(manifestLen):]
	for _, entry := range manifest.Entries {
		if uint64(len(rest)) < entry.Size {
			return nil, nil, fmt.Errorf("%w: truncated payload for %s", kferrors.ErrMalformedArchive, entry.Path)
		}
		payloads = append(payloads, rest[:entry.Size])
		rest = rest[entry.Size:]
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes after payloads", kferrors.ErrMalformedArchive, len(rest))
	}

	return &manifest, payloads, nil
}

// validate checks the manifest's required fields and entry paths.
func validate(manifest *Manifest) error {
	if manifest.KeyID == "" {
		return fmt.Errorf("%w: missing key id", kferrors.ErrMalformedArchive)
	}
	if manifest.Algorithm == "" {
		return fmt.Errorf("%w: missing algorithm", kferrors.ErrMalformedArchive)
	}
	if len(manifest.WrappedKey) == 0 {
		return fmt.Errorf("%w: missing wrapped session key", kferrors.ErrMalformedArchive)
	}
	if len(manifest.Entries) == 0 {
		return fmt.Errorf("%w: no entries", kferrors.ErrMalformedArchive)
	}

	seen := make(map[string]bool, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		if entry.Path == "" {
			return fmt.Errorf("%w: entry with empty path", kferrors.ErrMalformedArchive)
		}
		// Entry paths must stay below the extraction root.
		clean := filepath.ToSlash(filepath.Clean(entry.Path))
		if strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("%w: unsafe entry path %q", kferrors.ErrMalformedArchive, entry.Path)
		}
		if seen[clean] {
			return fmt.Errorf("%w: duplicate entry path %q", kferrors.ErrMalformedArchive, entry.Path)
		}
		seen[clean] = true

		if len(entry.Nonce) == 0 {
			return fmt.Errorf("%w: entry %s missing nonce", kferrors.ErrMalformedArchive, entry.Path)
		}
		if len(entry.Tag) == 0 {
			return fmt.Errorf("%w: entry %s missing tag", kferrors.ErrMalformedArchive, entry.Path)
		}
	}
	return nil
}
