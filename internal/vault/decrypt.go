package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"keyfort/internal/archive"
	"keyfort/internal/hybrid"
	"keyfort/internal/keyring"
	"keyfort/internal/keys"
	logger "keyfort/internal/logging"
)

// DecryptOptions configures Decrypt.
type DecryptOptions struct {
	// Workers bounds the number of entries decrypted concurrently. Zero
	// means GOMAXPROCS.
	Workers int

	// Verbose and Debug control logging.
	Verbose bool
	Debug   bool
}

// Decrypt opens an archive, resolves the key pair it references, and writes
// the decrypted files into the destination directory, preserving relative
// paths. For a protected key pair the password is verified while unsealing
// the private key, before any entry ciphertext is touched. Every entry is
// decrypted and authenticated in memory before the first output file is
// written, so a failure produces no partial output.
func Decrypt(store *keyring.Store, source string, destination string, password string, opts DecryptOptions) ([]string, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

	info, err := os.Stat(destination)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("destination must be a directory: %s", destination)
	}

	manifest, payloads, err := archive.Read(source)
	if err != nil {
		return nil, err
	}

	record, err := store.Get(manifest.KeyID)
	if err != nil {
		return nil, err
	}
	log.Debugf("Archive %s references key pair %q", source, record.Name)

	privateKey, err := keys.PrivateKey(record, password)
	if err != nil {
		return nil, err
	}

	sessionKey, err := hybrid.UnwrapSessionKey(archiveEnvelope(manifest), privateKey)
	if err != nil {
		return nil, err
	}
	defer zero(sessionKey)

	plan := make([]planned, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		plan[i] = planned{archivePath: entry.Path}
	}

	plaintexts := make([][]byte, len(manifest.Entries))
	if err := eachFile(plan, opts.Workers, func(i int, p planned) error {
		env := hybrid.Envelope{
			Nonce:      manifest.Entries[i].Nonce,
			Ciphertext: payloads[i],
			Tag:        manifest.Entries[i].Tag,
		}
		plaintext, err := hybrid.DecryptWithSessionKey(env, sessionKey)
		if err != nil {
			return fmt.Errorf("entry %s: %w", p.archivePath, err)
		}
		plaintexts[i] = plaintext
		log.Debugf("Decrypted entry %s", p.archivePath)
		return nil
	}); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		outPath := filepath.Join(destination, filepath.FromSlash(entry.Path))
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", outPath, err)
		}
		// #nosec G306 -- Decrypted files should be editable by the user.
		if err := os.WriteFile(outPath, plaintexts[i], 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		written = append(written, outPath)
	}

	log.Infof("Decrypted %d files into %s", len(written), destination)
	return written, nil
}

// archiveEnvelope builds an Envelope carrying only the manifest's wrapped
// session key, for unwrapping ahead of per-entry decryption.
func archiveEnvelope(manifest *archive.Manifest) hybrid.Envelope {
	return hybrid.Envelope{WrappedKey: manifest.WrappedKey}
}
