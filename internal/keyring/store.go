package keyring

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	kferrors "keyfort/internal/errors"
)

// CurrentRevision is the version of the keyring file format. It must be
// incremented for any change that breaks compatibility with existing files.
const CurrentRevision = 1

// snapshot is the on-disk shape of the whole keyring.
type snapshot struct {
	Revision int         `toml:"revision"`
	Records  []KeyRecord `toml:"records"`
}

// Store is a file-backed collection of KeyRecords with a unique name index.
// It is safe for concurrent use. Every mutation persists the whole file
// atomically, so readers never observe a partially written record.
type Store struct {
	path    string
	mu      sync.RWMutex
	records map[string]KeyRecord // keyed by id
	names   map[string]string    // name -> id
}

// Open opens the keyring at path, creating an empty one if the file does not
// exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]KeyRecord),
		names:   make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read keyring at %s: %w", path, err)
	}

	if err := s.load(data); err != nil {
		return nil, fmt.Errorf("failed to load keyring at %s: %w", path, err)
	}

	return s, nil
}

// Close flushes the store to disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// Path returns the location of the keyring file.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new record. Fails with ErrDuplicateName if the name is
// already taken.
func (s *Store) Create(record KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[record.Name]; exists {
		return fmt.Errorf("%w: %q", kferrors.ErrDuplicateName, record.Name)
	}
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("record id %s already exists", record.ID)
	}

	s.records[record.ID] = record.clone()
	s.names[record.Name] = record.ID

	if err := s.persist(); err != nil {
		// Roll back the in-memory state so the store matches disk.
		delete(s.records, record.ID)
		delete(s.names, record.Name)
		return err
	}
	return nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return KeyRecord{}, fmt.Errorf("%w: id %s", kferrors.ErrKeyNotFound, id)
	}
	return record.clone(), nil
}

// GetByName returns a copy of the record with the given name.
func (s *Store) GetByName(name string) (KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return KeyRecord{}, fmt.Errorf("%w: %q", kferrors.ErrKeyNotFound, name)
	}
	return s.records[id].clone(), nil
}

// List returns copies of all records, newest first.
func (s *Store) List() []KeyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KeyRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete permanently removes the record with the given id. There is no
// soft-delete.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: id %s", kferrors.ErrKeyNotFound, id)
	}

	delete(s.records, id)
	delete(s.names, record.Name)

	if err := s.persist(); err != nil {
		s.records[id] = record
		s.names[record.Name] = id
		return err
	}
	return nil
}

// SetHint updates the password hint on a record.
func (s *Store) SetHint(id string, hint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: id %s", kferrors.ErrKeyNotFound, id)
	}

	previous := record
	record.Hint = hint
	s.records[id] = record

	if err := s.persist(); err != nil {
		s.records[id] = previous
		return err
	}
	return nil
}

// Update replaces the stored record with the given one, matched by id. The
// name index is kept consistent; renaming onto a taken name fails with
// ErrDuplicateName.
func (s *Store) Update(record KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.records[record.ID]
	if !ok {
		return fmt.Errorf("%w: id %s", kferrors.ErrKeyNotFound, record.ID)
	}

	if record.Name != previous.Name {
		if _, taken := s.names[record.Name]; taken {
			return fmt.Errorf("%w: %q", kferrors.ErrDuplicateName, record.Name)
		}
		delete(s.names, previous.Name)
		s.names[record.Name] = record.ID
	}
	s.records[record.ID] = record.clone()

	if err := s.persist(); err != nil {
		s.records[record.ID] = previous
		if record.Name != previous.Name {
			delete(s.names, record.Name)
			s.names[previous.Name] = record.ID
		}
		return err
	}
	return nil
}

// Snapshot serializes the entire store to TOML bytes, suitable for backup.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encode()
}

// Replace swaps the full store contents for the given snapshot bytes. The
// snapshot is fully decoded and validated before anything is touched; a
// decode failure leaves the live store unchanged.
func (s *Store) Replace(data []byte) error {
	records, names, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevRecords, prevNames := s.records, s.names
	s.records, s.names = records, names

	if err := s.persist(); err != nil {
		s.records, s.names = prevRecords, prevNames
		return err
	}
	return nil
}

// WriteSafetyCopy writes a plaintext copy of the current store next to the
// keyring file, named with the first free .back_N suffix. Existing safety
// copies are never overwritten.
func (s *Store) WriteSafetyCopy() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.encode()
	if err != nil {
		return "", err
	}

	for n := 1; ; n++ {
		copyPath := fmt.Sprintf("%s.back_%d", s.path, n)
		file, err := os.OpenFile(copyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to create safety copy at %s: %w", copyPath, err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", fmt.Errorf("failed to write safety copy at %s: %w", copyPath, err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("failed to close safety copy at %s: %w", copyPath, err)
		}
		return copyPath, nil
	}
}

// load populates the in-memory maps from keyring file bytes.
func (s *Store) load(data []byte) error {
	records, names, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	s.records = records
	s.names = names
	return nil
}

func decodeSnapshot(data []byte) (map[string]KeyRecord, map[string]string, error) {
	var snap snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("failed to decode keyring: %w", err)
	}
	if snap.Revision > CurrentRevision {
		return nil, nil, fmt.Errorf("keyring revision %d is newer than supported revision %d", snap.Revision, CurrentRevision)
	}

	records := make(map[string]KeyRecord, len(snap.Records))
	names := make(map[string]string, len(snap.Records))
	for _, record := range snap.Records {
		if record.ID == "" || record.Name == "" {
			return nil, nil, fmt.Errorf("failed to decode keyring: record missing id or name")
		}
		if _, dup := records[record.ID]; dup {
			return nil, nil, fmt.Errorf("failed to decode keyring: duplicate record id %s", record.ID)
		}
		if _, dup := names[record.Name]; dup {
			return nil, nil, fmt.Errorf("failed to decode keyring: duplicate record name %q", record.Name)
		}
		records[record.ID] = record
		names[record.Name] = record.ID
	}
	return records, names, nil
}

// encode serializes the store. Callers must hold at least a read lock.
func (s *Store) encode() ([]byte, error) {
	snap := snapshot{Revision: CurrentRevision}
	for _, record := range s.records {
		snap.Records = append(snap.Records, record)
	}
	sort.Slice(snap.Records, func(i, j int) bool {
		return snap.Records[i].Name < snap.Records[j].Name
	})

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode keyring: %w", err)
	}
	return buf.Bytes(), nil
}

// persist writes the store to disk atomically: the encoded file is written to
// a temporary location and then moved into place. Callers must hold the
// write lock.
func (s *Store) persist() error {
	data, err := s.encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keyring directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".keyring-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary keyring file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary keyring file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set keyring file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary keyring file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move keyring into place: %w", err)
	}
	return nil
}
