package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sparkscan/internal/logging"
	"sparkscan/internal/record"
)

// JSONStore keeps records and pending conflicts in two JSON files.
type JSONStore struct {
	recordsPath   string
	conflictsPath string
	log           *logging.Logger
}

// NewJSONStore returns a store over the given files. Neither file has to
// exist yet.
func NewJSONStore(recordsPath, conflictsPath string, log *logging.Logger) *JSONStore {
	return &JSONStore{
		recordsPath:   recordsPath,
		conflictsPath: conflictsPath,
		log:           logging.OrNop(log),
	}
}

// Load reads both files. A missing file is empty. A corrupt records file is
// an error; a corrupt conflicts file is set aside next to the original and
// treated as empty.
func (s *JSONStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot

	data, err := readOptional(s.recordsPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read records: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snap.Records); err != nil {
			return Snapshot{}, fmt.Errorf("parse records %s: %w", s.recordsPath, err)
		}
	}
	sortByID(snap.Records)

	data, err = readOptional(s.conflictsPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read conflicts: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snap.Pending); err != nil {
			backup := fmt.Sprintf("%s.corrupt-%d", s.conflictsPath, time.Now().Unix())
			if werr := os.WriteFile(backup, data, 0o644); werr != nil {
				s.log.Error("failed to back up corrupt conflicts file", "path", s.conflictsPath, "error", werr)
			}
			s.log.Warn("conflicts file is corrupt, starting with no pending conflicts",
				"path", s.conflictsPath, "backup", backup, "error", err)
			snap.Pending = nil
		}
	}
	return snap, nil
}

// Save writes both files through a temporary file and rename.
func (s *JSONStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := snap.Records
	if records == nil {
		records = []record.Record{}
	}
	if err := writeJSON(s.recordsPath, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	pending := snap.Pending
	if pending == nil {
		pending = []Conflict{}
	}
	if err := writeJSON(s.conflictsPath, pending); err != nil {
		return fmt.Errorf("write conflicts: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
