// Package storage persists experiment runs to SQLite: run metadata,
// per-generation archive snapshots and the raw feedback log.
package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

// Store is a SQLite-backed experiment store. Safe for concurrent use;
// database/sql serializes access through its connection pool.
type Store struct {
	db *sql.DB
}

// Config controls how the store opens its database.
type Config struct {
	// Path to the database file
	Path string

	// EnableWAL switches the journal to write-ahead logging
	EnableWAL bool

	// MaxConnections bounds the connection pool; 0 uses the default
	MaxConnections int
}

// Open creates or opens the experiment database and initializes its
// schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.InvalidInput, "storage path is empty")
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open experiment database")
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetConnMaxLifetime(time.Hour)

	if cfg.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
		}
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to set synchronous pragma")
	}

	s := &Store{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to initialize schema")
	}
	return s, nil
}

func (s *Store) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		emitter TEXT NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		snapshot BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, generation)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		cell_key TEXT NOT NULL,
		value REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_run ON feedback(run_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// SaveRun records a new experiment run.
func (s *Store) SaveRun(runID, emitter string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs (run_id, emitter, started_at) VALUES (?, ?, ?)`,
		runID, emitter, time.Now().Unix(),
	)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to save run")
	}
	return nil
}

// SaveSnapshot stores the archive state at the end of a generation.
// The snapshot is serialized as JSON; re-saving a generation replaces
// the previous row.
func (s *Store) SaveSnapshot(runID string, generation int, snap archive.Snapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to encode snapshot")
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (run_id, generation, snapshot, created_at) VALUES (?, ?, ?, ?)`,
		runID, generation, blob, time.Now().Unix(),
	)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to save snapshot")
	}
	return nil
}

// LoadSnapshot retrieves a stored snapshot.
func (s *Store) LoadSnapshot(runID string, generation int) (archive.Snapshot, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT snapshot FROM snapshots WHERE run_id = ? AND generation = ?`,
		runID, generation,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return archive.Snapshot{}, errors.WithFields(
			errors.New(errors.ResourceNotFound, "snapshot not found"),
			errors.Fields{"run_id": runID, "generation": generation},
		)
	}
	if err != nil {
		return archive.Snapshot{}, errors.Wrap(err, errors.Unknown, "failed to load snapshot")
	}

	var snap archive.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return archive.Snapshot{}, errors.Wrap(err, errors.Unknown, "failed to decode snapshot")
	}
	return snap, nil
}

// Generations lists the stored generation indices for a run, ascending.
func (s *Store) Generations(runID string) ([]int, error) {
	rows, err := s.db.Query(
		`SELECT generation FROM snapshots WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list generations")
	}
	defer rows.Close()

	var gens []int
	for rows.Next() {
		var g int
		if err := rows.Scan(&g); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan generation")
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// AppendFeedback logs one raw feedback event.
func (s *Store) AppendFeedback(runID, key string, value float64) error {
	_, err := s.db.Exec(
		`INSERT INTO feedback (run_id, cell_key, value, created_at) VALUES (?, ?, ?, ?)`,
		runID, key, value, time.Now().Unix(),
	)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to append feedback")
	}
	return nil
}

// FeedbackLog returns the recorded (cell key, value) pairs for a run,
// oldest first.
func (s *Store) FeedbackLog(runID string) ([]FeedbackEntry, error) {
	rows, err := s.db.Query(
		`SELECT cell_key, value FROM feedback WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read feedback log")
	}
	defer rows.Close()

	var entries []FeedbackEntry
	for rows.Next() {
		var e FeedbackEntry
		if err := rows.Scan(&e.CellKey, &e.Value); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan feedback")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FeedbackEntry is one logged preference event.
type FeedbackEntry struct {
	CellKey string
	Value   float64
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to close experiment database")
	}
	return nil
}
