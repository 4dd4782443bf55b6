package codebase

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Persistence is the SQLite save file behind a Codebase. Metrics and
// metadata are stored as JSON columns; the program source is the primary
// key, matching the dedup semantics of the in-memory store.
type Persistence struct {
	db   *sql.DB
	path string
}

// OpenPersistence opens (or creates) a codebase save file.
func OpenPersistence(path string) (*Persistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("codebase: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("codebase: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		code     TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		count    INTEGER NOT NULL,
		metrics  TEXT NOT NULL,
		metadata TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("codebase: creating table: %w", err)
	}

	return &Persistence{db: db, path: path}, nil
}

// Close closes the save file.
func (p *Persistence) Close() error {
	return p.db.Close()
}

// Path returns the save file path.
func (p *Persistence) Path() string { return p.path }

// save writes every program of cb, replacing existing rows. Caller holds
// the codebase lock.
func (p *Persistence) save(cb *Codebase) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("codebase: begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO programs
		(code, position, count, metrics, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("codebase: prepare save: %w", err)
	}
	defer stmt.Close()

	for position, code := range cb.order {
		prog := cb.programs[code]
		metrics, err := json.Marshal(prog.metrics)
		if err != nil {
			return fmt.Errorf("codebase: encode metrics for %q: %w", code, err)
		}
		metadata, err := json.Marshal(prog.metadata)
		if err != nil {
			return fmt.Errorf("codebase: encode metadata for %q: %w", code, err)
		}
		if _, err := stmt.Exec(code, position, prog.count, metrics, metadata); err != nil {
			return fmt.Errorf("codebase: save %q: %w", code, err)
		}
	}
	return tx.Commit()
}

// load reads every saved program into cb. Caller holds the codebase lock.
func (p *Persistence) load(cb *Codebase) error {
	rows, err := p.db.Query(`SELECT code, count, metrics, metadata
		FROM programs ORDER BY position`)
	if err != nil {
		return fmt.Errorf("codebase: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code             string
			count            int
			metrics, metaRaw []byte
		)
		if err := rows.Scan(&code, &count, &metrics, &metaRaw); err != nil {
			return fmt.Errorf("codebase: scan: %w", err)
		}
		prog := &entry{
			code:     code,
			count:    count,
			metrics:  make(map[string]float64),
			metadata: make(map[string]string),
		}
		if err := json.Unmarshal(metrics, &prog.metrics); err != nil {
			return fmt.Errorf("codebase: decode metrics for %q: %w", code, err)
		}
		if err := json.Unmarshal(metaRaw, &prog.metadata); err != nil {
			return fmt.Errorf("codebase: decode metadata for %q: %w", code, err)
		}
		cb.programs[code] = prog
		cb.order = append(cb.order, code)
	}
	return rows.Err()
}

// Flush writes the codebase to its save file, if it has one.
func (cb *Codebase) Flush() error {
	if cb.store == nil {
		return nil
	}
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.store.save(cb)
}

// Load replaces the codebase contents with its save file's contents.
func (cb *Codebase) Load() error {
	if cb.store == nil {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.order = nil
	cb.programs = make(map[string]*entry)
	return cb.store.load(cb)
}
