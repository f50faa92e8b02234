package hybrid

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	kferrors "keyfort/internal/errors"
)

// testKey generates a small RSA key; production key pairs are larger but the
// construction is identical.
func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)
	payload := []byte("attack at dawn")

	env, err := Encrypt(payload, &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if len(env.Nonce) != NonceSize {
		t.Errorf("Expected %d-byte nonce, got %d", NonceSize, len(env.Nonce))
	}
	if len(env.Tag) != TagSize {
		t.Errorf("Expected %d-byte tag, got %d", TagSize, len(env.Tag))
	}
	if bytes.Contains(env.Ciphertext, payload) {
		t.Error("Ciphertext contains the plaintext")
	}

	plaintext, err := Decrypt(env, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(plaintext, payload) {
		t.Errorf("Round trip changed the payload: %q", plaintext)
	}
}

func TestEncrypt_EmptyPayload(t *testing.T) {
	key := testKey(t)

	env, err := Encrypt(nil, &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	plaintext, err := Decrypt(env, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if len(plaintext) != 0 {
		t.Errorf("Expected empty plaintext, got %d bytes", len(plaintext))
	}
}

func TestEncrypt_FreshMaterialPerCall(t *testing.T) {
	key := testKey(t)
	payload := []byte("same payload twice")

	first, err := Encrypt(payload, &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := Encrypt(payload, &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Error("Nonce was reused across calls")
	}
	if bytes.Equal(first.WrappedKey, second.WrappedKey) {
		t.Error("Wrapped session key was reused across calls")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Error("Identical ciphertexts suggest key and nonce reuse")
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := testKey(t)

	env, err := Encrypt([]byte("sensitive data"), &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	env.Ciphertext[0] ^= 0x01
	if _, err := Decrypt(env, key); !errors.Is(err, kferrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for tampered ciphertext, got %v", err)
	}
}

func TestDecrypt_TamperedTag(t *testing.T) {
	key := testKey(t)

	env, err := Encrypt([]byte("sensitive data"), &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	env.Tag[0] ^= 0x01
	if _, err := Decrypt(env, key); !errors.Is(err, kferrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for tampered tag, got %v", err)
	}
}

func TestDecrypt_WrongPrivateKey(t *testing.T) {
	key := testKey(t)
	other := testKey(t)

	env, err := Encrypt([]byte("sensitive data"), &key.PublicKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(env, other); !errors.Is(err, kferrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for wrong private key, got %v", err)
	}
}

func TestSessionKey_MultiEntryRoundTrip(t *testing.T) {
	key := testKey(t)

	sessionKey, err := NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey failed: %v", err)
	}
	wrapped, err := WrapSessionKey(sessionKey, &key.PublicKey)
	if err != nil {
		t.Fatalf("WrapSessionKey failed: %v", err)
	}

	payloads := [][]byte{
		[]byte("entry one"),
		[]byte("entry two"),
		[]byte("entry three"),
	}
	envs := make([]Envelope, len(payloads))
	for i, payload := range payloads {
		envs[i], err = EncryptWithSessionKey(payload, sessionKey)
		if err != nil {
			t.Fatalf("EncryptWithSessionKey failed: %v", err)
		}
	}

	// Nonces must differ even under the same session key.
	if bytes.Equal(envs[0].Nonce, envs[1].Nonce) || bytes.Equal(envs[1].Nonce, envs[2].Nonce) {
		t.Error("Nonce reused across entries")
	}

	unwrapped, err := UnwrapSessionKey(Envelope{WrappedKey: wrapped}, key)
	if err != nil {
		t.Fatalf("UnwrapSessionKey failed: %v", err)
	}
	if !bytes.Equal(unwrapped, sessionKey) {
		t.Error("Unwrapped session key differs from original")
	}

	for i, env := range envs {
		plaintext, err := DecryptWithSessionKey(env, unwrapped)
		if err != nil {
			t.Fatalf("DecryptWithSessionKey failed for entry %d: %v", i, err)
		}
		if !bytes.Equal(plaintext, payloads[i]) {
			t.Errorf("Entry %d round trip mismatch: %q", i, plaintext)
		}
	}
}

func TestDecryptWithSessionKey_BadNonceLength(t *testing.T) {
	sessionKey, err := NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey failed: %v", err)
	}

	env, err := EncryptWithSessionKey([]byte("payload"), sessionKey)
	if err != nil {
		t.Fatalf("EncryptWithSessionKey failed: %v", err)
	}

	env.Nonce = env.Nonce[:4]
	if _, err := DecryptWithSessionKey(env, sessionKey); !errors.Is(err, kferrors.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication for bad nonce length, got %v", err)
	}
}
