// Package configs resolves and persists Keyfort's user-level settings.
//
// All state lives under a single data directory: $KEYFORT_HOME if set,
// otherwise ~/.keyfort. The directory contains the keyring file, the user
// config (TOML) and the operation history log. SaveTOML and LoadTOML are the
// shared serialization helpers used for every TOML file the application
// writes.
package configs
