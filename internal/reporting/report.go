// Package reporting renders portfolio run results as markdown, CSV and
// chart outputs.
package reporting

import (
	"fmt"
	"math"
	"time"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/orchestrator"
)

// MetricRow is one line of the side-by-side statistics table.
type MetricRow struct {
	Name      string
	Portfolio string
	Benchmark string
}

// Report is a rendered-friendly view of one pipeline result.
type Report struct {
	GeneratedAt time.Time
	RunID       string
	Benchmark   string
	Interval    domain.Interval
	Capital     float64
	Allocations []domain.Allocation
	Rows        int
	StartDate   string
	EndDate     string
	Metrics     []MetricRow
	Valuation   *domain.ValuationSeries
}

// Builder assembles reports with an injectable clock for deterministic
// output in tests.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a report builder.
func NewBuilder() *Builder {
	return &Builder{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build converts an orchestrator result into a Report.
func (b *Builder) Build(req orchestrator.Request, res *orchestrator.Result) *Report {
	v := res.Valuation
	report := &Report{
		GeneratedAt: b.now(),
		RunID:       res.RunID,
		Benchmark:   req.Benchmark,
		Interval:    req.Interval,
		Capital:     req.Portfolio.Capital,
		Allocations: req.Portfolio.Allocations,
		Rows:        v.Len(),
		StartDate:   req.StartDate.Format("2006-01-02"),
		EndDate:     req.EndDate.Format("2006-01-02"),
		Valuation:   v,
	}

	pf, bm := res.PortfolioStats, res.BenchmarkStats
	report.Metrics = []MetricRow{
		{"Total return", formatMetric(pf.TotalReturn, true), formatMetric(bm.TotalReturn, true)},
		{"Annualized return", formatMetric(pf.AnnualizedReturn, true), formatMetric(bm.AnnualizedReturn, true)},
		{"Sharpe ratio", formatMetric(pf.Sharpe, true), formatMetric(bm.Sharpe, true)},
		{"Sortino ratio", formatMetric(pf.Sortino, true), formatMetric(bm.Sortino, true)},
		{"Max drawdown", formatMetric(pf.MaxDrawdown, true), formatMetric(bm.MaxDrawdown, true)},
		{"Calmar ratio", formatCalmar(pf), formatCalmar(bm)},
	}
	return report
}

func formatMetric(v float64, defined bool) string {
	if !defined || math.IsNaN(v) {
		return "undefined"
	}
	if math.IsInf(v, 0) {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", v)
}

// formatCalmar surfaces the zero-drawdown failure mode explicitly instead
// of printing an infinity.
func formatCalmar(s *domain.StatsReport) string {
	return formatMetric(s.Calmar, s.CalmarDefined)
}
