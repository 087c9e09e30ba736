package storage

import (
	"context"

	"defi-portfolio-lab/internal/domain"
)

// CandleStore provides access to candle timeseries storage.
type CandleStore interface {
	// InsertBulk adds candles for one symbol+interval. Fails the entire
	// batch with ErrDuplicateKey on any duplicate (symbol, interval,
	// open_time_ms).
	InsertBulk(ctx context.Context, symbol string, interval domain.Interval, candles []domain.Candle) error

	// GetSeries retrieves all candles for symbol+interval, ordered by open
	// time ASC. Returns ErrNotFound when no rows exist.
	GetSeries(ctx context.Context, symbol string, interval domain.Interval) (*domain.CandleSeries, error)

	// GetSeriesRange retrieves candles within [startMs, endMs] (inclusive),
	// ordered by open time ASC. Returns ErrNotFound when no rows match.
	GetSeriesRange(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64) (*domain.CandleSeries, error)
}

// RunStore provides access to persisted portfolio runs.
type RunStore interface {
	// Insert adds a completed run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.PortfolioRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.PortfolioRun, error)

	// List retrieves all runs ordered by created_at DESC.
	List(ctx context.Context) ([]*domain.PortfolioRun, error)
}
