package postgres

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

func createTestRun(runID string, createdAtMs int64) *domain.PortfolioRun {
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
		PortfolioStats: domain.StatsReport{
			TotalReturn:      0.12,
			AnnualizedReturn: 3.4,
			Sharpe:           2.1,
			Sortino:          3.0,
			MaxDrawdown:      -0.08,
			Calmar:           1.5,
			CalmarDefined:    true,
		},
		BenchmarkStats: domain.StatsReport{
			TotalReturn:      0.05,
			AnnualizedReturn: 1.2,
			Sharpe:           1.1,
			Sortino:          1.6,
			MaxDrawdown:      -0.04,
			Calmar:           0.8,
			CalmarDefined:    true,
		},
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := createTestRun("run-001", 1700000000000)
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.CreatedAtMs, got.CreatedAtMs)
	assert.Equal(t, run.Benchmark, got.Benchmark)
	assert.Equal(t, run.Interval, got.Interval)
	assert.Equal(t, run.StartDate, got.StartDate)
	assert.Equal(t, run.EndDate, got.EndDate)
	assert.InDelta(t, run.Capital, got.Capital, 1e-9)
	assert.Equal(t, run.Allocations, got.Allocations)
	assert.InDelta(t, run.PortfolioStats.TotalReturn, got.PortfolioStats.TotalReturn, 1e-9)
	assert.InDelta(t, run.PortfolioStats.Calmar, got.PortfolioStats.Calmar, 1e-9)
	assert.True(t, got.PortfolioStats.CalmarDefined)
	assert.InDelta(t, run.BenchmarkStats.MaxDrawdown, got.BenchmarkStats.MaxDrawdown, 1e-9)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("run-001", 1000)))

	err := store.Insert(ctx, createTestRun("run-001", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("run-b", 1000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-c", 3000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-a", 1000)))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first, ties broken by run id.
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-a", runs[1].RunID)
	assert.Equal(t, "run-b", runs[2].RunID)
}

func TestRunStore_UndefinedCalmarRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	// Monotone series produce an infinite Calmar that jsonb cannot hold;
	// the defined flag must reconstruct it on read.
	run := createTestRun("run-inf", 1000)
	run.PortfolioStats.Calmar = math.Inf(1)
	run.PortfolioStats.CalmarDefined = false
	run.PortfolioStats.Sortino = math.Inf(1)

	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-inf")
	require.NoError(t, err)

	assert.False(t, got.PortfolioStats.CalmarDefined)
	assert.True(t, math.IsInf(got.PortfolioStats.Calmar, 1))
	assert.True(t, got.BenchmarkStats.CalmarDefined)
}

func TestRunStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.PortfolioRun{}), storage.ErrInvalidInput)
}
