// Package checkpointing persists the small time records that let a
// simulation resume its time bookkeeping at a checkpointed step.
package checkpointing

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned when no time record exists for a step.
var ErrNotFound = errors.New("checkpoint time record not found")

// A TimeRecord is what the scheduler needs to resume at a step.
type TimeRecord struct {
	Step         int     `json:"step"`
	CurrentTime  float64 `json:"current_time"`
	Dt           float64 `json:"dt"`
	ProcessCount int     `json:"process_count"`
}

// Layout decides where the files of a checkpoint live.
type Layout struct {
	// Dir is the checkpoint root directory.
	Dir string

	// Prefix is put in front of every checkpoint file name, separated by a
	// dot. It may be empty.
	Prefix string

	// AppendStep places every checkpoint in its own zero-padded step
	// sub-directory of Dir.
	AppendStep bool

	// Ext is the file extension of the time record, set by the backend.
	Ext string
}

// StepDir returns the directory that holds the files of a step.
func (l Layout) StepDir(step int) string {
	if l.AppendStep {
		return filepath.Join(l.Dir, fmt.Sprintf("%05d", step))
	}

	return l.Dir
}

// FileName returns the name of a checkpoint file of a step, with the prefix
// applied.
func (l Layout) FileName(base string, step int, ext string) string {
	name := fmt.Sprintf("%s.%05d.%s", base, step, ext)
	if l.Prefix != "" {
		name = l.Prefix + "." + name
	}

	return name
}

// TimeInfoPath returns the path of the time record of a step.
func (l Layout) TimeInfoPath(step int) string {
	return filepath.Join(l.StepDir(step), l.FileName("timeInfo", step, l.Ext))
}

// A Store saves and loads time records.
type Store interface {
	// Save writes the record of rec.Step, replacing any previous one.
	Save(rec TimeRecord) error

	// Load reads the record of a step. It returns an error wrapping
	// ErrNotFound when the record does not exist.
	Load(step int) (TimeRecord, error)

	// Exists tells if a record exists for a step.
	Exists(step int) bool

	// Layout returns where the store puts its files.
	Layout() Layout
}

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite3"
)

// Open creates a store of the named backend over a layout. The layout's Ext
// is set by the backend.
func Open(backend string, layout Layout) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(layout), nil
	case BackendSQLite:
		return NewSQLiteStore(layout), nil
	}

	return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
}

func notFound(path string) error {
	return fmt.Errorf("%w: expected %s", ErrNotFound, path)
}
