package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Settings holds the resolved locations of Keyfort's on-disk state.
type Settings struct {
	// DataDir is the directory holding the keyring, config and history files.
	DataDir string

	// KeyringPath is the path to the keyring file.
	KeyringPath string

	// HistoryPath is the path to the operation history log.
	HistoryPath string

	// ConfigPath is the path to the user config file.
	ConfigPath string
}

// Config holds user-editable defaults persisted in config.toml.
type Config struct {
	// DefaultKey is the key pair name used when a command is run without --key.
	DefaultKey string `toml:"default_key"`
}

// UserSettings is populated by InitUserSettings.
var UserSettings *Settings

// InitUserSettings resolves the data directory and ensures it exists.
// The directory is $KEYFORT_HOME if set, otherwise ~/.keyfort.
func InitUserSettings() error {
	dataDir := os.Getenv("KEYFORT_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".keyfort")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}

	UserSettings = &Settings{
		DataDir:     dataDir,
		KeyringPath: filepath.Join(dataDir, "keyring.toml"),
		HistoryPath: filepath.Join(dataDir, "history.jsonl"),
		ConfigPath:  filepath.Join(dataDir, "config.toml"),
	}

	return nil
}

// LoadUserConfig reads config.toml, returning an empty config if the file
// does not exist yet.
func LoadUserConfig() (*Config, error) {
	if UserSettings == nil {
		return nil, fmt.Errorf("user settings not initialized")
	}

	config := &Config{}
	if _, err := os.Stat(UserSettings.ConfigPath); os.IsNotExist(err) {
		return config, nil
	}
	if err := LoadTOML(UserSettings.ConfigPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	return config, nil
}

// SaveUserConfig writes config.toml.
func SaveUserConfig(config *Config) error {
	if UserSettings == nil {
		return fmt.Errorf("user settings not initialized")
	}
	if err := SaveTOML(UserSettings.ConfigPath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}
