package memory

import (
	"context"
	"errors"
	"testing"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

func sampleRun(runID string, createdAtMs int64) *domain.PortfolioRun {
	return &domain.PortfolioRun{
		RunID:       runID,
		CreatedAtMs: createdAtMs,
		Benchmark:   "BTCUSDT",
		Interval:    domain.Interval1d,
		StartDate:   "2021-01-01",
		EndDate:     "2021-01-10",
		Capital:     5000,
		Allocations: []domain.Allocation{
			{Symbol: "UNIUSDT", Weight: 60},
			{Symbol: "LDOUSDT", Weight: 40},
		},
		PortfolioStats: domain.StatsReport{TotalReturn: 0.12, CalmarDefined: true, Calmar: 1.5},
		BenchmarkStats: domain.StatsReport{TotalReturn: 0.05, CalmarDefined: true, Calmar: 0.8},
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := sampleRun("run-a", 1000)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Benchmark != "BTCUSDT" || got.Capital != 5000 {
		t.Errorf("run mismatch: %+v", got)
	}
	if len(got.Allocations) != 2 {
		t.Errorf("Allocations = %d, want 2", len(got.Allocations))
	}

	// Returned run is a copy; mutating it must not affect the store.
	got.Allocations[0].Weight = 99
	again, _ := store.GetByID(ctx, "run-a")
	if again.Allocations[0].Weight != 60 {
		t.Error("stored run was mutated through a returned copy")
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, sampleRun("run-a", 1000)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, sampleRun("run-a", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestRunStore_GetMissing(t *testing.T) {
	store := NewRunStore()
	if _, err := store.GetByID(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunStore_ListOrder(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	// Inserted out of creation order; List returns newest first, ties
	// broken by run id ascending.
	for _, r := range []*domain.PortfolioRun{
		sampleRun("run-b", 1000),
		sampleRun("run-c", 3000),
		sampleRun("run-a", 1000),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	runs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("List = %d runs, want 3", len(runs))
	}
	wantOrder := []string{"run-c", "run-a", "run-b"}
	for i, want := range wantOrder {
		if runs[i].RunID != want {
			t.Errorf("List[%d] = %s, want %s", i, runs[i].RunID, want)
		}
	}
}

func TestRunStore_InvalidInput(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil run err = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.PortfolioRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty run id err = %v, want ErrInvalidInput", err)
	}
}
