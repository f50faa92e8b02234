// Package hybrid implements the hybrid cryptosystem at the core of Keyfort:
// payloads are encrypted with AES-256-GCM under a random one-time session
// key, and the session key is wrapped with RSA-OAEP (SHA-512) under the
// recipient's public key.
//
// All functions are pure and stateless, so files in a directory operation may
// be processed in any order or in parallel. Authentication is verified before
// any plaintext is returned; a failed tag never releases partial output.
package hybrid
