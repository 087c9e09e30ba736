package domain

// PortfolioRun is one completed valuation pipeline execution: the inputs
// that produced it plus the resulting statistics for portfolio and
// benchmark. Persisted by the run store for later comparison of scenarios.
type PortfolioRun struct {
	RunID       string // deterministic hash of the run parameters
	CreatedAtMs int64

	Benchmark string
	Interval  Interval
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
	Capital   float64

	Allocations []Allocation

	PortfolioStats StatsReport
	BenchmarkStats StatsReport
}
