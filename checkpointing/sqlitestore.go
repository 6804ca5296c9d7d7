package checkpointing

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps each time record in its own SQLite database file.
type SQLiteStore struct {
	layout Layout
}

// NewSQLiteStore creates a SQLiteStore.
func NewSQLiteStore(layout Layout) *SQLiteStore {
	layout.Ext = BackendSQLite
	return &SQLiteStore{layout: layout}
}

// Layout returns where the store puts its files.
func (s *SQLiteStore) Layout() Layout {
	return s.layout
}

// Save writes the record, replacing the record of the same step.
func (s *SQLiteStore) Save(rec TimeRecord) error {
	path := s.layout.TimeInfoPath(rec.Step)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS time_info (
		step          INTEGER PRIMARY KEY,
		sim_time      REAL NOT NULL,
		dt            REAL NOT NULL,
		process_count INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table in %s: %w", path, err)
	}

	_, err = db.Exec(
		`INSERT OR REPLACE INTO time_info VALUES (?, ?, ?, ?)`,
		rec.Step, rec.CurrentTime, rec.Dt, rec.ProcessCount,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// Load reads the record of a step.
func (s *SQLiteStore) Load(step int) (TimeRecord, error) {
	path := s.layout.TimeInfoPath(step)
	rec := TimeRecord{}

	// Opening a missing file would create an empty database.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return rec, notFound(path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return rec, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	err = db.QueryRow(
		`SELECT step, sim_time, dt, process_count FROM time_info
		WHERE step = ?`, step,
	).Scan(&rec.Step, &rec.CurrentTime, &rec.Dt, &rec.ProcessCount)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, notFound(path)
	}

	if err != nil {
		return rec, fmt.Errorf("read %s: %w", path, err)
	}

	return rec, nil
}

// Exists tells if a record exists for a step.
func (s *SQLiteStore) Exists(step int) bool {
	_, err := os.Stat(s.layout.TimeInfoPath(step))
	return err == nil
}
