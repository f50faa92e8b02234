// Package archive reads and writes the Keyfort container format (.kfar).
//
// A container is a single file holding one manifest and one or more
// encrypted payloads. The manifest names the key pair that wrapped the
// session key, the symmetric algorithm, and the per-entry nonce, tag, size
// and relative path, making the archive fully self-describing. Writes are
// atomic (temp file plus rename); reads validate the structure before any
// decryption so malformed containers are reported distinctly from
// authentication failures.
package archive
