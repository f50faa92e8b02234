package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"keyfort/internal/archive"
	"keyfort/internal/hybrid"
	"keyfort/internal/keyring"
	"keyfort/internal/keys"
	logger "keyfort/internal/logging"
)

// ArchiveExt is the file extension of Keyfort containers.
const ArchiveExt = ".kfar"

// EncryptOptions configures Encrypt.
type EncryptOptions struct {
	// Output overrides the archive file name inside the destination
	// directory. Defaults to the first source's base name plus ArchiveExt.
	Output string

	// Workers bounds the number of files encrypted concurrently. Zero means
	// GOMAXPROCS.
	Workers int

	// Verbose and Debug control logging.
	Verbose bool
	Debug   bool
}

// Encrypt encrypts the given files and directories under the named key pair's
// public key and writes a single archive into the destination directory.
// Each file is encrypted independently under one fresh session key, so an
// archive can later be partially decrypted per entry. The whole operation is
// atomic: any per-file failure aborts before the archive appears on disk.
func Encrypt(store *keyring.Store, keyName string, sources []string, destination string, opts EncryptOptions) (string, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}

	record, err := store.GetByName(keyName)
	if err != nil {
		return "", err
	}

	publicKey, err := keys.DecodePublicKey([]byte(record.PublicKeyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse public key for %q: %w", keyName, err)
	}

	info, err := os.Stat(destination)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("destination must be a directory: %s", destination)
	}

	plan, err := planSources(sources)
	if err != nil {
		return "", err
	}
	log.Infof("Encrypting %d files under key pair %q", len(plan), keyName)

	sessionKey, err := hybrid.NewSessionKey()
	if err != nil {
		return "", err
	}
	defer zero(sessionKey)

	wrappedKey, err := hybrid.WrapSessionKey(sessionKey, publicKey)
	if err != nil {
		return "", err
	}

	entries := make([]archive.Entry, len(plan))
	payloads := make([][]byte, len(plan))
	if err := eachFile(plan, opts.Workers, func(i int, p planned) error {
		plaintext, err := os.ReadFile(p.realPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p.realPath, err)
		}

		env, err := hybrid.EncryptWithSessionKey(plaintext, sessionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", p.realPath, err)
		}

		entries[i] = archive.Entry{
			Path:  p.archivePath,
			Nonce: archive.Bytes(env.Nonce),
			Tag:   archive.Bytes(env.Tag),
		}
		payloads[i] = env.Ciphertext
		log.Debugf("Encrypted %s", p.realPath)
		return nil
	}); err != nil {
		return "", err
	}

	output := opts.Output
	if output == "" {
		base := filepath.Base(filepath.Clean(sources[0]))
		output = strings.TrimSuffix(base, filepath.Ext(base)) + ArchiveExt
		if filepath.Ext(base) == "" {
			output = base + ArchiveExt
		}
	}
	archivePath := filepath.Join(destination, output)

	manifest := &archive.Manifest{
		KeyID:      record.ID,
		KeyName:    record.Name,
		Algorithm:  hybrid.AlgorithmID,
		WrappedKey: archive.Bytes(wrappedKey),
		Entries:    entries,
	}

	if err := archive.Write(archivePath, manifest, payloads); err != nil {
		return "", err
	}

	log.Infof("Wrote archive %s", archivePath)
	return archivePath, nil
}

// eachFile runs fn for every planned file with bounded concurrency. The
// first error wins; remaining work is skipped once a failure is observed.
func eachFile(plan []planned, workers int, fn func(i int, p planned) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(plan) {
		workers = len(plan)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				if err := fn(i, plan[i]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for i := range plan {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return firstErr
}

// zero overwrites key material after use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
