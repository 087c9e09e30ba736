package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// runStats mirrors domain.StatsReport for the jsonb stats columns.
type runStats struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Calmar           float64 `json:"calmar"`
	CalmarDefined    bool    `json:"calmar_defined"`
}

// runAllocation mirrors domain.Allocation for the jsonb allocations column.
type runAllocation struct {
	Symbol string `json:"symbol"`
	Weight int    `json:"weight"`
}

// Insert adds a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, run *domain.PortfolioRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	allocs, err := marshalAllocations(run.Allocations)
	if err != nil {
		return fmt.Errorf("marshal allocations: %w", err)
	}
	pfStats, err := marshalStats(run.PortfolioStats)
	if err != nil {
		return fmt.Errorf("marshal portfolio stats: %w", err)
	}
	bmStats, err := marshalStats(run.BenchmarkStats)
	if err != nil {
		return fmt.Errorf("marshal benchmark stats: %w", err)
	}

	query := `
		INSERT INTO portfolio_runs (
			run_id, created_at_ms, benchmark, interval, start_date, end_date,
			capital, allocations, portfolio_stats, benchmark_stats
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		run.RunID, run.CreatedAtMs, run.Benchmark, string(run.Interval),
		run.StartDate, run.EndDate, run.Capital, allocs, pfStats, bmStats,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.PortfolioRun, error) {
	query := `
		SELECT run_id, created_at_ms, benchmark, interval, start_date, end_date,
		       capital, allocations, portfolio_stats, benchmark_stats
		FROM portfolio_runs
		WHERE run_id = $1
	`
	run, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return run, nil
}

// List retrieves all runs ordered by created_at DESC.
func (s *RunStore) List(ctx context.Context) ([]*domain.PortfolioRun, error) {
	query := `
		SELECT run_id, created_at_ms, benchmark, interval, start_date, end_date,
		       capital, allocations, portfolio_stats, benchmark_stats
		FROM portfolio_runs
		ORDER BY created_at_ms DESC, run_id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.PortfolioRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.PortfolioRun, error) {
	var (
		run      domain.PortfolioRun
		interval string
		allocs   []byte
		pfStats  []byte
		bmStats  []byte
	)
	err := row.Scan(
		&run.RunID, &run.CreatedAtMs, &run.Benchmark, &interval,
		&run.StartDate, &run.EndDate, &run.Capital, &allocs, &pfStats, &bmStats,
	)
	if err != nil {
		return nil, err
	}
	run.Interval = domain.Interval(interval)

	var rawAllocs []runAllocation
	if err := json.Unmarshal(allocs, &rawAllocs); err != nil {
		return nil, fmt.Errorf("unmarshal allocations: %w", err)
	}
	for _, a := range rawAllocs {
		run.Allocations = append(run.Allocations, domain.Allocation{Symbol: a.Symbol, Weight: a.Weight})
	}

	if run.PortfolioStats, err = unmarshalStats(pfStats); err != nil {
		return nil, fmt.Errorf("unmarshal portfolio stats: %w", err)
	}
	if run.BenchmarkStats, err = unmarshalStats(bmStats); err != nil {
		return nil, fmt.Errorf("unmarshal benchmark stats: %w", err)
	}
	return &run, nil
}

func marshalAllocations(allocs []domain.Allocation) ([]byte, error) {
	raw := make([]runAllocation, len(allocs))
	for i, a := range allocs {
		raw[i] = runAllocation{Symbol: a.Symbol, Weight: a.Weight}
	}
	return json.Marshal(raw)
}

// marshalStats flattens non-finite metrics to zero: jsonb has no Inf. An
// undefined Calmar is reconstructed from the calmar_defined flag on read.
func marshalStats(stats domain.StatsReport) ([]byte, error) {
	raw := runStats{
		TotalReturn:      finiteOrZero(stats.TotalReturn),
		AnnualizedReturn: finiteOrZero(stats.AnnualizedReturn),
		Sharpe:           finiteOrZero(stats.Sharpe),
		Sortino:          finiteOrZero(stats.Sortino),
		MaxDrawdown:      finiteOrZero(stats.MaxDrawdown),
		Calmar:           finiteOrZero(stats.Calmar),
		CalmarDefined:    stats.CalmarDefined,
	}
	return json.Marshal(raw)
}

func unmarshalStats(data []byte) (domain.StatsReport, error) {
	var raw runStats
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.StatsReport{}, err
	}
	stats := domain.StatsReport{
		TotalReturn:      raw.TotalReturn,
		AnnualizedReturn: raw.AnnualizedReturn,
		Sharpe:           raw.Sharpe,
		Sortino:          raw.Sortino,
		MaxDrawdown:      raw.MaxDrawdown,
		Calmar:           raw.Calmar,
		CalmarDefined:    raw.CalmarDefined,
	}
	if !stats.CalmarDefined {
		stats.Calmar = math.Inf(1)
	}
	return stats, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
