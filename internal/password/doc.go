// Package password scores passwords used to protect private keys.
//
// The check is advisory beyond the hard eight-character minimum: a weak
// password is accepted but flagged, and the flag is carried on the key record
// so backup can warn when the signing key's password is weak.
package password
