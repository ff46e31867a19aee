package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ecodyn/foodweb/internal/sim"
)

// SQLiteStore keeps all runs in a single database file, convenient for
// parameter sweeps producing thousands of runs.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("storage: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, meta RunMetadata, result *sim.Result) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	meta.ID = newRunID()
	meta.Timestamp = time.Now()
	meta.Status = result.Status.String()
	meta.Steps = result.StepsTaken
	meta.Extinctions = result.Extinction

	metaPayload, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	trajectory, err := json.Marshal(struct {
		Times  []float64   `json:"times"`
		States [][]float64 `json:"states"`
	}{result.Times, statesAsSlices(result)})
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, label, status, metadata, trajectory)
		VALUES (?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.Timestamp.UTC(), meta.Label, meta.Status, metaPayload, trajectory)
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT metadata FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT metadata FROM runs WHERE id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("storage: run %s not found", runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *SQLiteStore) LoadStates(ctx context.Context, runID string) ([][]float64, []float64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT trajectory FROM runs WHERE id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("storage: run %s not found", runID)
		}
		return nil, nil, err
	}
	var trajectory struct {
		Times  []float64   `json:"times"`
		States [][]float64 `json:"states"`
	}
	if err := json.Unmarshal(payload, &trajectory); err != nil {
		return nil, nil, fmt.Errorf("storage: decode trajectory %s: %w", runID, err)
	}
	return trajectory.States, trajectory.Times, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("storage: store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			label TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata BLOB NOT NULL,
			trajectory BLOB NOT NULL
		);
	`)
	return err
}

func statesAsSlices(result *sim.Result) [][]float64 {
	out := make([][]float64, len(result.States))
	for k, st := range result.States {
		out[k] = st
	}
	return out
}
