// Package orchestrator composes the full valuation pipeline:
// range assembly → benchmark build → portfolio valuation → statistics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/observability"
	"defi-portfolio-lab/internal/portfolio"
	"defi-portfolio-lab/internal/runid"
	"defi-portfolio-lab/internal/stats"
	"defi-portfolio-lab/internal/storage"
)

const dateLayout = "2006-01-02"

// Request describes one portfolio computation.
type Request struct {
	Benchmark string
	Interval  domain.Interval
	StartDate time.Time
	EndDate   time.Time
	Portfolio domain.Portfolio
}

// Result is the outcome of one pipeline run. Every run owns its working
// tables; nothing is shared across concurrent requests.
type Result struct {
	RunID          string
	Valuation      *domain.ValuationSeries
	PortfolioStats *domain.StatsReport
	BenchmarkStats *domain.StatsReport
	Duration       time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	Engine *portfolio.Engine
	// RunStore persists completed runs when set.
	RunStore storage.RunStore
	Logger   *log.Logger
	// Clock is injectable for deterministic run records in tests.
	Clock func() time.Time
}

// Orchestrator runs the valuation pipeline end to end.
type Orchestrator struct {
	engine   *portfolio.Engine
	runStore storage.RunStore
	logger   *log.Logger
	now      func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		engine:   opts.Engine,
		runStore: opts.RunStore,
		logger:   logger,
		now:      now,
	}
}

// Run executes one pipeline request. Configuration problems (bad weights,
// inverted range, unknown interval) surface before any network call.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := o.now()

	if err := req.Portfolio.Validate(); err != nil {
		observability.RecordPortfolioRun("rejected", 0)
		return nil, err
	}
	if req.Benchmark == "" {
		observability.RecordPortfolioRun("rejected", 0)
		return nil, errors.New("benchmark symbol is required")
	}

	base, err := o.engine.BuildBenchmark(ctx, req.Benchmark, req.Interval, req.StartDate, req.EndDate, req.Portfolio.Capital)
	if err != nil {
		observability.RecordPortfolioRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("build benchmark: %w", err)
	}

	valuation, err := o.engine.Compute(ctx, base, req.Portfolio, req.Interval, req.StartDate, req.EndDate)
	if err != nil {
		observability.RecordPortfolioRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("compute portfolio: %w", err)
	}

	pfStats, err := stats.Compute(valuation.PortfolioReturn, valuation.PortfolioValue)
	if err != nil {
		observability.RecordPortfolioRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("portfolio statistics: %w", err)
	}
	bmStats, err := stats.Compute(valuation.BenchmarkReturn, valuation.BenchmarkValue)
	if err != nil {
		observability.RecordPortfolioRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("benchmark statistics: %w", err)
	}

	result := &Result{
		RunID: runid.Compute(req.Benchmark, req.Interval,
			req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout),
			req.Portfolio.Capital, req.Portfolio.Allocations),
		Valuation:      valuation,
		PortfolioStats: pfStats,
		BenchmarkStats: bmStats,
		Duration:       time.Since(started),
	}

	if o.runStore != nil {
		if err := o.persist(ctx, req, result); err != nil {
			// A failed history write does not invalidate the computation.
			o.logger.Printf("Warning: persist run %s: %v", result.RunID, err)
		}
	}

	observability.RecordPortfolioRun("ok", result.Duration.Seconds())
	o.logger.Printf("Run %s completed: %d rows, %d assets, total return %.4f",
		result.RunID[:12], valuation.Len(), len(valuation.Positions), pfStats.TotalReturn)
	return result, nil
}

func (o *Orchestrator) persist(ctx context.Context, req Request, res *Result) error {
	run := &domain.PortfolioRun{
		RunID:          res.RunID,
		CreatedAtMs:    o.now().UnixMilli(),
		Benchmark:      req.Benchmark,
		Interval:       req.Interval,
		StartDate:      req.StartDate.Format(dateLayout),
		EndDate:        req.EndDate.Format(dateLayout),
		Capital:        req.Portfolio.Capital,
		Allocations:    req.Portfolio.Allocations,
		PortfolioStats: *res.PortfolioStats,
		BenchmarkStats: *res.BenchmarkStats,
	}
	err := o.runStore.Insert(ctx, run)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Identical parameters were already recorded; not an error.
		return nil
	}
	if err != nil {
		return err
	}
	observability.RecordRunPersisted()
	return nil
}
