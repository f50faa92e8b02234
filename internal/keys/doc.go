// Package keys manages RSA key pairs: generation, password protection,
// unsealing, and PEM import/export.
//
// Generated pairs are RSA-4096. A password-protected private key is stored as
// AES-256-GCM ciphertext of its PKCS#8 encoding under an Argon2id-derived
// key; the decrypted key exists only transiently, re-derived per operation,
// and is never written back to the keyring. Unprotected private keys are
// stored as plaintext PEM, which the caller accepts as a risk: anyone holding
// the keyring can decrypt with them.
package keys
