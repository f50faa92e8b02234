package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Entry represents a single recorded operation.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"` // encrypt, decrypt, backup, restore.

	// Optional fields depending on operation.
	KeyName     string   `json:"key_name,omitempty"`  // Key pair used.
	Sources     []string `json:"sources,omitempty"`   // For encrypt.
	Source      string   `json:"source,omitempty"`    // For decrypt/restore.
	Destination string   `json:"dest,omitempty"`      // Output location.
	FilesCount  int      `json:"files,omitempty"`     // Entries processed.
	ArchivePath string   `json:"archive,omitempty"`   // For encrypt/backup.
	SafetyCopy  string   `json:"safety_copy,omitempty"` // For restore.
}

// Append adds an entry to the history log at path. Failures are returned but
// callers are expected to warn, not fail: an operation should not be undone
// just because its history entry could not be written.
func Append(path string, entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open history log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}
	return nil
}

// Read returns all entries in the log, oldest first. A missing log yields an
// empty slice.
func Read(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Skip corrupt lines rather than losing the rest of the log.
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read history log: %w", err)
	}
	return entries, nil
}
