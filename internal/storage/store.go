// Package storage persists finished runs: metadata plus the sampled
// trajectory, behind one interface with a plain-file and a SQLite backend.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ecodyn/foodweb/internal/sim"
)

// RunMetadata describes one archived simulation run.
type RunMetadata struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Species     int                `json:"species"`
	Integrator  string             `json:"integrator"`
	Status      string             `json:"status"`
	Steps       int                `json:"steps"`
	Extinctions map[int]float64    `json:"extinctions,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Store archives runs and retrieves them by ID.
type Store interface {
	Init(ctx context.Context) error
	// Save archives the run and returns its generated ID.
	Save(ctx context.Context, meta RunMetadata, result *sim.Result) (string, error)
	List(ctx context.Context) ([]RunMetadata, error)
	Load(ctx context.Context, runID string) (*RunMetadata, error)
	// LoadStates returns the sampled states and their times.
	LoadStates(ctx context.Context, runID string) ([][]float64, []float64, error)
	Close() error
}

func newRunID() string { return uuid.NewString() }
