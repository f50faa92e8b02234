package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keyfort/internal/archive"
	kferrors "keyfort/internal/errors"
	"keyfort/internal/hybrid"
	"keyfort/internal/keyring"
	"keyfort/internal/keys"
	logger "keyfort/internal/logging"
)

// snapshotEntryPath is the archive path of the keyring snapshot inside a
// backup container.
const snapshotEntryPath = "keyring.toml"

// BackupResult reports the written archive and any advisory for the caller.
type BackupResult struct {
	ArchivePath string

	// Warning is set when the backup proceeded under a key pair whose
	// password missed the strength recommendations.
	Warning string
}

// Backup snapshots the entire keyring into one encrypted archive in the
// destination directory. The signing key pair must be password protected; a
// backup whose private key anyone can use would be unsafe, so unprotected
// keys are rejected with ErrUnprotectedKey. The password is verified up
// front so a backup is never written under a password the user cannot
// reproduce.
func Backup(store *keyring.Store, keyName string, password string, destination string, opts EncryptOptions) (BackupResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}
	var result BackupResult

	info, err := os.Stat(destination)
	if err != nil || !info.IsDir() {
		return result, fmt.Errorf("destination must be a directory: %s", destination)
	}

	record, err := store.GetByName(keyName)
	if err != nil {
		return result, err
	}
	if !record.Protected {
		return result, fmt.Errorf("%w: backups require a password-protected key pair", kferrors.ErrUnprotectedKey)
	}
	if !record.Strong {
		result.Warning = "the signing key pair's password does not meet all strength recommendations"
	}

	// Prove the password unseals the private key before writing anything.
	if _, err := keys.PrivateKey(record, password); err != nil {
		return result, err
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return result, err
	}

	publicKey, err := keys.DecodePublicKey([]byte(record.PublicKeyPEM))
	if err != nil {
		return result, fmt.Errorf("failed to parse public key for %q: %w", keyName, err)
	}

	env, err := hybrid.Encrypt(snapshot, publicKey)
	if err != nil {
		return result, err
	}

	recoveryPublic, recoveryPrivate, err := keys.Export(record)
	if err != nil {
		return result, err
	}

	params := record.KDFParams
	manifest := &archive.Manifest{
		KeyID:      record.ID,
		KeyName:    record.Name,
		Algorithm:  hybrid.AlgorithmID,
		WrappedKey: archive.Bytes(env.WrappedKey),
		KDFSalt:    archive.Bytes(record.KDFSalt),
		KDFParams:  &params,
		// The still-encrypted private key rides along for manual recovery,
		// matching the exported PEM form.
		RecoveryPublicPEM:  recoveryPublic,
		RecoveryPrivatePEM: recoveryPrivate,
		Entries: []archive.Entry{{
			Path:  snapshotEntryPath,
			Nonce: archive.Bytes(env.Nonce),
			Tag:   archive.Bytes(env.Tag),
		}},
	}

	output := opts.Output
	if output == "" {
		output = "keyfort-backup-" + time.Now().UTC().Format("20060102-150405") + ArchiveExt
	}
	archivePath := filepath.Join(destination, output)

	if err := archive.Write(archivePath, manifest, [][]byte{env.Ciphertext}); err != nil {
		return result, err
	}

	log.Infof("Wrote keyring backup %s", archivePath)
	result.ArchivePath = archivePath
	return result, nil
}

// RestoreResult reports the safety copy location after a restore attempt.
type RestoreResult struct {
	// SafetyCopyPath is the plaintext pre-restore snapshot. It is written
	// before the backup is opened and is never auto-deleted, so it survives
	// restore failures.
	SafetyCopyPath string

	// Restored is the number of key records in the store after the restore.
	Restored int
}

// Restore replaces the live keyring with the snapshot inside a backup
// archive. A plaintext safety copy of the current store is written first,
// with an incrementing suffix so prior copies are never overwritten. The
// live store is swapped only after the decrypted snapshot fully decodes;
// any failure along the way leaves the store untouched.
func Restore(store *keyring.Store, source string, password string, opts DecryptOptions) (RestoreResult, error) {
	log := logger.Logger{Verbose: opts.Verbose, Debug: opts.Debug}
	var result RestoreResult

	safetyPath, err := store.WriteSafetyCopy()
	if err != nil {
		return result, err
	}
	result.SafetyCopyPath = safetyPath
	log.Infof("Wrote safety copy %s", safetyPath)

	manifest, payloads, err := archive.Read(source)
	if err != nil {
		return result, err
	}
	if len(manifest.Entries) != 1 || manifest.Entries[0].Path != snapshotEntryPath {
		return result, fmt.Errorf("%w: not a keyring backup", kferrors.ErrMalformedArchive)
	}

	record, err := store.Get(manifest.KeyID)
	if err != nil {
		return result, err
	}

	privateKey, err := keys.PrivateKey(record, password)
	if err != nil {
		return result, err
	}

	env := hybrid.Envelope{
		WrappedKey: manifest.WrappedKey,
		Nonce:      manifest.Entries[0].Nonce,
		Ciphertext: payloads[0],
		Tag:        manifest.Entries[0].Tag,
	}
	snapshot, err := hybrid.Decrypt(env, privateKey)
	if err != nil {
		return result, err
	}

	// Replace fully decodes the snapshot before swapping anything.
	if err := store.Replace(snapshot); err != nil {
		return result, err
	}

	result.Restored = len(store.List())
	log.Infof("Restored %d key records from %s", result.Restored, source)
	return result, nil
}
