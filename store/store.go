// Package store persists Tinder sessions to SQLite: a compiled
// script's CBOR-encoded bytecode keyed by its source fingerprint, and a
// running session's Crucible snapshot plus program counter keyed by a
// UUID session id, grounded on the teacher's lib/runtime/persistence.go
// (database/sql, create-table-if-needed, save/load-by-id) but against
// modernc.org/sqlite's pure-Go driver rather than the teacher's cgo one.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Hyomoto/tinder/tinder"
)

// ErrNotFound is returned by Load/LoadScript when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store is a SQLite-backed cache of compiled scripts and a persistence
// layer for suspended sessions (one per Yielded/Imported outcome a host
// wants to resume later, e.g. across process restarts).
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the SQLite database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scripts (
			fingerprint TEXT PRIMARY KEY,
			grammar_version TEXT NOT NULL,
			bytecode BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			pc INTEGER NOT NULL,
			crucible BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrating schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScript caches a compiled script's bytecode under fingerprint (the
// caller's choice of cache key, typically a hash of its source text),
// so a later CompileOrLoad-style call can skip recompilation.
func (s *Store) SaveScript(fingerprint string, script *tinder.CompiledScript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := script.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("store: encoding script: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO scripts (fingerprint, grammar_version, bytecode) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET grammar_version = excluded.grammar_version, bytecode = excluded.bytecode`,
		fingerprint, script.GrammarVersion, data,
	)
	if err != nil {
		return fmt.Errorf("store: saving script: %w", err)
	}
	return nil
}

// LoadScript returns the cached script for fingerprint, or ErrNotFound.
func (s *Store) LoadScript(fingerprint string) (*tinder.CompiledScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT bytecode FROM scripts WHERE fingerprint = ?", fingerprint).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading script: %w", err)
	}
	script := &tinder.CompiledScript{}
	if err := script.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("store: decoding script: %w", err)
	}
	return script, nil
}

// Session is a suspended interpreter: the script it's running
// (identified by fingerprint, not re-saved here), its paused program
// counter, and a root Crucible snapshot.
type Session struct {
	ID          string
	Fingerprint string
	PC          int
	Crucible    tinder.Snapshot
}

// NewSession allocates a fresh session id, leaving the caller to
// populate Fingerprint/PC/Crucible before Save.
func NewSession(fingerprint string) *Session {
	return &Session{ID: uuid.NewString(), Fingerprint: fingerprint}
}

// Save persists sess, inserting or overwriting by ID.
func (s *Store) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := cborMarshalSnapshot(sess.Crucible)
	if err != nil {
		return fmt.Errorf("store: encoding crucible: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, fingerprint, pc, crucible, updated_at) VALUES (?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET fingerprint = excluded.fingerprint, pc = excluded.pc, crucible = excluded.crucible, updated_at = excluded.updated_at`,
		sess.ID, sess.Fingerprint, sess.PC, data,
	)
	if err != nil {
		return fmt.Errorf("store: saving session: %w", err)
	}
	return nil
}

// Load retrieves a session by id, or ErrNotFound.
func (s *Store) Load(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fingerprint string
	var pc int
	var data []byte
	err := s.db.QueryRow(
		"SELECT fingerprint, pc, crucible FROM sessions WHERE id = ?", id,
	).Scan(&fingerprint, &pc, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading session: %w", err)
	}
	snap, err := cborUnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("store: decoding crucible: %w", err)
	}
	return &Session{ID: id, Fingerprint: fingerprint, PC: pc, Crucible: snap}, nil
}

// Delete removes a session, e.g. once it reaches Halted or Burn.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: deleting session: %w", err)
	}
	return nil
}
