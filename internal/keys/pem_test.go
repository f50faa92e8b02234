package keys

import (
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kferrors "keyfort/internal/errors"
)

func TestPublicKey_EncodeDecodeRoundTrip(t *testing.T) {
	key := testRSAKey(t)

	encoded, err := EncodePublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey failed: %v", err)
	}
	if !strings.Contains(encoded, "BEGIN PUBLIC KEY") {
		t.Errorf("Expected a PUBLIC KEY block, got: %s", encoded)
	}

	decoded, err := DecodePublicKey([]byte(encoded))
	if err != nil {
		t.Fatalf("DecodePublicKey failed: %v", err)
	}
	if !decoded.Equal(&key.PublicKey) {
		t.Error("Decoded public key differs from original")
	}
}

func TestPrivateKey_EncodeDecodeRoundTrip(t *testing.T) {
	key := testRSAKey(t)

	encoded := EncodePrivateKey(key)
	if !strings.Contains(encoded, "BEGIN RSA PRIVATE KEY") {
		t.Errorf("Expected an RSA PRIVATE KEY block, got prefix: %.40s", encoded)
	}

	decoded, err := DecodePrivateKey([]byte(encoded))
	if err != nil {
		t.Fatalf("DecodePrivateKey failed: %v", err)
	}
	if !decoded.Equal(key) {
		t.Error("Decoded private key differs from original")
	}
}

func TestDecodePublicKey_RejectsGarbage(t *testing.T) {
	if _, err := DecodePublicKey([]byte("not a pem block")); err == nil {
		t.Error("Expected error for garbage input")
	}
	if _, err := DecodePublicKey([]byte(EncodePrivateKey(testRSAKey(t)))); err == nil {
		t.Error("Expected error for a private key block")
	}
}

func TestExport_ProtectedStaysEncrypted(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")

	publicPEM, privatePEM, err := Export(record)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if publicPEM != record.PublicKeyPEM {
		t.Error("Public PEM should be exported verbatim")
	}

	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		t.Fatal("Private export is not a PEM block")
	}
	if block.Type != encryptedBlockType {
		t.Errorf("Expected %q block, got %q", encryptedBlockType, block.Type)
	}
	if block.Headers["KDF"] != "argon2id" {
		t.Errorf("Expected argon2id KDF header, got %q", block.Headers["KDF"])
	}
	if block.Headers["Salt"] == "" || block.Headers["Time"] == "" || block.Headers["Memory"] == "" || block.Headers["Threads"] == "" {
		t.Errorf("Missing KDF headers: %v", block.Headers)
	}
	if string(block.Bytes) != string(record.PrivateKeyBlob) {
		t.Error("Exported bytes should be the still-encrypted blob")
	}
}

func TestExport_UnprotectedPlaintext(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "")

	_, privatePEM, err := Export(record)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := DecodePrivateKey([]byte(privatePEM)); err != nil {
		t.Errorf("Unprotected export should parse as plaintext PEM: %v", err)
	}
}

func TestImport_EncryptedExportRoundTrip(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")

	publicPEM, privatePEM, err := Export(record)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	other := openTestStore(t)
	imported, err := Import(other, "alice-restored", []byte(publicPEM), ImportOptions{
		PrivatePEM: []byte(privatePEM),
		Password:   "Str0ng!Pass_2024xx",
	})
	if err != nil {
		t.Fatalf("Import of encrypted export failed: %v", err)
	}
	if !imported.Protected {
		t.Error("Imported record should stay protected")
	}

	// The original password still unseals the re-imported key.
	originalKey, err := PrivateKey(record, "Str0ng!Pass_2024xx")
	if err != nil {
		t.Fatalf("PrivateKey failed: %v", err)
	}
	importedKey, err := PrivateKey(imported, "Str0ng!Pass_2024xx")
	if err != nil {
		t.Fatalf("PrivateKey on imported record failed: %v", err)
	}
	if !importedKey.Equal(originalKey) {
		t.Error("Imported private key differs from the original")
	}
}

func TestImport_EncryptedExportNeedsPassword(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")

	publicPEM, privatePEM, err := Export(record)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	other := openTestStore(t)
	_, err = Import(other, "alice-restored", []byte(publicPEM), ImportOptions{
		PrivatePEM: []byte(privatePEM),
	})
	if !errors.Is(err, kferrors.ErrInvalidPassword) {
		t.Errorf("Expected ErrInvalidPassword without a password, got %v", err)
	}
}

func TestImport_EncryptedExportWrongPassword(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")

	publicPEM, privatePEM, err := Export(record)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	other := openTestStore(t)
	_, err = Import(other, "alice-restored", []byte(publicPEM), ImportOptions{
		PrivatePEM: []byte(privatePEM),
		Password:   "wrong",
	})
	if !errors.Is(err, kferrors.ErrInvalidPassword) {
		t.Errorf("Expected ErrInvalidPassword for wrong password, got %v", err)
	}
}

func TestImport_MismatchedPair(t *testing.T) {
	store := openTestStore(t)
	keyA := testRSAKey(t)
	keyB := testRSAKey(t)

	publicPEM, err := EncodePublicKey(&keyA.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey failed: %v", err)
	}

	_, err = Import(store, "mismatched", []byte(publicPEM), ImportOptions{
		PrivatePEM: []byte(EncodePrivateKey(keyB)),
	})
	if !errors.Is(err, kferrors.ErrKeyMismatch) {
		t.Errorf("Expected ErrKeyMismatch, got %v", err)
	}

	// Nothing must have been inserted.
	if _, err := store.GetByName("mismatched"); !errors.Is(err, kferrors.ErrKeyNotFound) {
		t.Errorf("Store should not contain the rejected pair, got %v", err)
	}
}

func TestImport_PublicKeyOnly(t *testing.T) {
	store := openTestStore(t)
	key := testRSAKey(t)

	publicPEM, err := EncodePublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKey failed: %v", err)
	}

	record, err := Import(store, "encrypt-only", []byte(publicPEM), ImportOptions{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(record.PrivateKeyBlob) != 0 {
		t.Error("Public-only import should store no private key")
	}
}

func TestExportToDir_WritesFilesOnce(t *testing.T) {
	store := openTestStore(t)
	record := importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")

	dir := t.TempDir()
	if err := ExportToDir(record, dir); err != nil {
		t.Fatalf("ExportToDir failed: %v", err)
	}

	publicPath := filepath.Join(dir, "alice_public.pem")
	privatePath := filepath.Join(dir, "alice_PRIVATE.pem")
	if _, err := os.Stat(publicPath); err != nil {
		t.Errorf("Public PEM not written: %v", err)
	}
	if _, err := os.Stat(privatePath); err != nil {
		t.Errorf("Private PEM not written: %v", err)
	}

	// Exports never overwrite existing files.
	if err := ExportToDir(record, dir); err == nil {
		t.Error("Second export should refuse to overwrite")
	}
}

func TestExportAll_SubdirectoryPerPair(t *testing.T) {
	store := openTestStore(t)
	importTestPair(t, store, "alice", "Str0ng!Pass_2024xx")
	importTestPair(t, store, "bob", "")

	dir := t.TempDir()
	if err := ExportAll(store, dir); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	for _, name := range []string{"alice", "bob"} {
		publicPath := filepath.Join(dir, name, name+"_public.pem")
		if _, err := os.Stat(publicPath); err != nil {
			t.Errorf("Missing export for %s: %v", name, err)
		}
	}
}
