package sistore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is the durable, normalised relational snapshot of the broadcast
// catalogue. All public methods are safe for concurrent use; writes are
// additionally serialised by mu so version-guarded upserts and the
// deferred repair queue never interleave inconsistently.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	repair *repairQueue
}

// Open opens (or creates) the sqlite file at path and ensures the schema
// exists. If the file exists but cannot be opened as a valid database, it
// is dropped and recreated once.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sistore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		log.Printf("sistore: schema init failed on %s, recreating: %v", path, err)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("sistore: remove corrupt store: %w", rmErr)
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("sistore: reopen %s: %w", path, err)
		}
		if _, err := db.Exec(schemaDDL); err != nil {
			db.Close()
			return nil, fmt.Errorf("sistore: schema init (recreate) %s: %w", path, err)
		}
	}
	return &Store{db: db, path: path, repair: newRepairQueue()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DropAndRecreate implements the schema-wide reset path used when the
// persisted scan settings changed; the NIT version change and stale-store
// audit paths share its locked helper. Corrupt-store recovery in Open
// removes the file instead.
func (s *Store) DropAndRecreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropAndRecreateLocked()
}

func (s *Store) dropAndRecreateLocked() error {
	if _, err := s.db.Exec(dropAllDDL); err != nil {
		return fmt.Errorf("sistore: drop schema: %w", err)
	}
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("sistore: recreate schema: %w", err)
	}
	return nil
}

// CreateTables ensures the schema exists without touching existing rows.
func (s *Store) CreateTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("sistore: create tables: %w", err)
	}
	return nil
}

// DropTables tears the catalogue tables down without recreating them.
// ScanSettings is left in place; use ClearSettings to wipe it.
func (s *Store) DropTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(dropAllDDL); err != nil {
		return fmt.Errorf("sistore: drop tables: %w", err)
	}
	return nil
}

// AddUpdate enqueues a deferred UPDATE statement for the next audit tick
// to retry.
func (s *Store) AddUpdate(stmt string, args ...any) {
	s.repair.Enqueue(stmt, args...)
}

// PerformUpdates drains the deferred repair queue once, outside the audit
// cycle.
func (s *Store) PerformUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repair.Drain(s.db)
}

// PendingRepairs reports the number of deferred repair entries still
// outstanding.
func (s *Store) PendingRepairs() int {
	return s.repair.Len()
}

// LoadScanSettings returns the persisted ScanSettings snapshot as a plain
// map, for comparison against the freshly read environment.
func (s *Store) LoadScanSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT variable, value FROM ScanSettings`)
	if err != nil {
		return nil, fmt.Errorf("sistore: load scan settings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sistore: scan settings row: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SaveScanSettings persists the current environment snapshot, replacing any
// prior values.
func (s *Store) SaveScanSettings(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sistore: save scan settings: %w", err)
	}
	defer tx.Rollback()
	for k, v := range values {
		if _, err := tx.Exec(`INSERT INTO ScanSettings(variable, value) VALUES(?, ?)
			ON CONFLICT(variable) DO UPDATE SET value=excluded.value`, k, v); err != nil {
			return fmt.Errorf("sistore: save scan setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// GetSetting reads one persisted ScanSettings value by name.
func (s *Store) GetSetting(name string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM ScanSettings WHERE variable = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sistore: get setting %s: %w", name, err)
	}
	return v, true, nil
}

// SetSetting writes one persisted ScanSettings value.
func (s *Store) SetSetting(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`INSERT INTO ScanSettings(variable, value) VALUES(?, ?)
		ON CONFLICT(variable) DO UPDATE SET value=excluded.value`, name, value); err != nil {
		return fmt.Errorf("sistore: set setting %s: %w", name, err)
	}
	return nil
}

// ClearSettings removes every persisted ScanSettings row.
func (s *Store) ClearSettings() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM ScanSettings`); err != nil {
		return fmt.Errorf("sistore: clear settings: %w", err)
	}
	return nil
}
