package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	if err := Append(path, Entry{Operation: "encrypt", KeyName: "alice", Sources: []string{"docs"}, ArchivePath: "docs.kfar"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := Append(path, Entry{Operation: "decrypt", Source: "docs.kfar", Destination: ".", FilesCount: 3}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Operation != "encrypt" || entries[0].KeyName != "alice" {
		t.Errorf("First entry mismatch: %+v", entries[0])
	}
	if entries[1].Operation != "decrypt" || entries[1].FilesCount != 3 {
		t.Errorf("Second entry mismatch: %+v", entries[1])
	}

	// Timestamps are filled in on append.
	for i, entry := range entries {
		if entry.Timestamp == "" {
			t.Errorf("Entry %d missing timestamp", i)
		}
	}
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("Read of a missing log should not fail: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestRead_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	if err := Append(path, Entry{Operation: "encrypt"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := file.Write([]byte("{corrupt json\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	file.Close()

	if err := Append(path, Entry{Operation: "decrypt"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected the corrupt line to be skipped, got %d entries", len(entries))
	}
	if entries[0].Operation != "encrypt" || entries[1].Operation != "decrypt" {
		t.Errorf("Entries out of order: %+v", entries)
	}
}

func TestAppend_PreservesExplicitTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	if err := Append(path, Entry{Timestamp: "2024-06-01T12:00:00.000000Z", Operation: "backup"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Timestamp != "2024-06-01T12:00:00.000000Z" {
		t.Errorf("Explicit timestamp not preserved: %+v", entries)
	}
}
