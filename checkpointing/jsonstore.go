package checkpointing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONStore keeps each time record in its own JSON file.
type JSONStore struct {
	layout Layout
}

// NewJSONStore creates a JSONStore.
func NewJSONStore(layout Layout) *JSONStore {
	layout.Ext = BackendJSON
	return &JSONStore{layout: layout}
}

// Layout returns where the store puts its files.
func (s *JSONStore) Layout() Layout {
	return s.layout
}

// Save writes the record atomically: a partially written record is never
// visible under the final name.
func (s *JSONStore) Save(rec TimeRecord) error {
	path := s.layout.TimeInfoPath(rec.Step)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, append(data, '\n'))
}

// Load reads the record of a step.
func (s *JSONStore) Load(step int) (TimeRecord, error) {
	path := s.layout.TimeInfoPath(step)
	rec := TimeRecord{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rec, notFound(path)
	}

	if err != nil {
		return rec, fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s: %w", path, err)
	}

	if rec.Step != step {
		return rec, fmt.Errorf("%s holds step %d, expected %d",
			path, rec.Step, step)
	}

	return rec, nil
}

// Exists tells if a record exists for a step.
func (s *JSONStore) Exists(step int) bool {
	_, err := os.Stat(s.layout.TimeInfoPath(step))
	return err == nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	// Some platforms refuse to sync directories; the rename already
	// happened, so that is not an error.
	_ = d.Sync()

	return nil
}
