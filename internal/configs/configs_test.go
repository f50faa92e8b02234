package configs

import (
	"path/filepath"
	"testing"
)

type tomlFixture struct {
	Name  string `toml:"name"`
	Count int    `toml:"count"`
}

func TestSaveLoadTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fixture.toml")

	original := tomlFixture{Name: "alice", Count: 3}
	if err := SaveTOML(path, original); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	var loaded tomlFixture
	if err := LoadTOML(path, &loaded); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if loaded != original {
		t.Errorf("Round trip mismatch: %+v vs %+v", loaded, original)
	}
}

func TestInitUserSettings_RespectsKeyfortHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("KEYFORT_HOME", home)

	if err := InitUserSettings(); err != nil {
		t.Fatalf("InitUserSettings failed: %v", err)
	}

	if UserSettings.DataDir != home {
		t.Errorf("Expected data dir %s, got %s", home, UserSettings.DataDir)
	}
	if UserSettings.KeyringPath != filepath.Join(home, "keyring.toml") {
		t.Errorf("Unexpected keyring path: %s", UserSettings.KeyringPath)
	}
	if UserSettings.HistoryPath != filepath.Join(home, "history.jsonl") {
		t.Errorf("Unexpected history path: %s", UserSettings.HistoryPath)
	}
}

func TestUserConfig_SaveLoad(t *testing.T) {
	t.Setenv("KEYFORT_HOME", t.TempDir())
	if err := InitUserSettings(); err != nil {
		t.Fatalf("InitUserSettings failed: %v", err)
	}

	// A missing config file yields an empty config, not an error.
	config, err := LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if config.DefaultKey != "" {
		t.Errorf("Expected empty default key, got %q", config.DefaultKey)
	}

	config.DefaultKey = "alice"
	if err := SaveUserConfig(config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}

	loaded, err := LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if loaded.DefaultKey != "alice" {
		t.Errorf("Expected default key alice, got %q", loaded.DefaultKey)
	}
}
