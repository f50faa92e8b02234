// Package vault orchestrates the encryption engine against the keyring.
//
// Encrypt and Decrypt move whole files and directory trees through the
// hybrid cipher and the archive codec; Backup and Restore treat the entire
// keyring as one payload, with plaintext safety copies taken before any
// restore. Per-file work fans out over a bounded worker pool since the
// underlying cipher is stateless.
package vault
