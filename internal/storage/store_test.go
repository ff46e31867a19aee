package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ecodyn/foodweb/internal/dynamics"
	"github.com/ecodyn/foodweb/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		Times: []float64{0, 0.1, 0.2},
		States: []dynamics.State{
			{0.5, 0.5},
			{0.45, 0.52},
			{0.41, 0.55},
		},
		Extinction: map[int]float64{},
		Status:     sim.StatusHorizon,
		StepsTaken: 2,
	}
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "runs")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "runs.db")),
	}
}

func TestStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("Init: %v", err)
			}
			defer store.Close()

			meta := RunMetadata{
				Label:      "chain",
				Seed:       7,
				Species:    2,
				Integrator: "rk45",
				Metrics:    map[string]float64{"persistence": 1},
			}
			id, err := store.Save(ctx, meta, sampleResult())
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if id == "" {
				t.Fatal("empty run ID")
			}

			loaded, err := store.Load(ctx, id)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Label != "chain" || loaded.Seed != 7 || loaded.Species != 2 {
				t.Errorf("metadata mangled: %+v", loaded)
			}
			if loaded.Status != "horizon" {
				t.Errorf("status = %q, want horizon", loaded.Status)
			}
			if loaded.Metrics["persistence"] != 1 {
				t.Errorf("metrics mangled: %v", loaded.Metrics)
			}

			states, times, err := store.LoadStates(ctx, id)
			if err != nil {
				t.Fatalf("LoadStates: %v", err)
			}
			if len(states) != 3 || len(times) != 3 {
				t.Fatalf("got %d states / %d times, want 3/3", len(states), len(times))
			}
			if states[2][1] != 0.55 || times[1] != 0.1 {
				t.Errorf("trajectory mangled: %v %v", states, times)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("Init: %v", err)
			}
			defer store.Close()

			if runs, err := store.List(ctx); err != nil || len(runs) != 0 {
				t.Fatalf("List on empty store = %v, %v", runs, err)
			}
			for i := 0; i < 3; i++ {
				if _, err := store.Save(ctx, RunMetadata{Label: "sweep"}, sampleResult()); err != nil {
					t.Fatalf("Save: %v", err)
				}
			}
			runs, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(runs) != 3 {
				t.Errorf("got %d runs, want 3", len(runs))
			}
		})
	}
}

func TestStoreMissingRun(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("Init: %v", err)
			}
			defer store.Close()

			if _, err := store.Load(ctx, "no-such-run"); err == nil {
				t.Error("expected error for missing run")
			}
			if _, _, err := store.LoadStates(ctx, "no-such-run"); err == nil {
				t.Error("expected error for missing trajectory")
			}
		})
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if _, err := store.Save(context.Background(), RunMetadata{}, sampleResult()); err == nil {
		t.Error("expected error before Init")
	}
}
