// Package portfolio converts weighted asset selections into valuation
// series anchored at a fixed initial capital.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"defi-portfolio-lab/internal/domain"
)

// Computation errors.
var (
	// ErrIndexMismatch is returned when an asset's candle series does not
	// share the benchmark's exact time index. Row-wise sums over
	// misaligned indices would be silently wrong, so this fails fast.
	ErrIndexMismatch = errors.New("candle series time index mismatch")

	// ErrZeroInitialPrice is returned when an asset has no usable price at
	// the initial timestamp, making the unit allocation undefined.
	ErrZeroInitialPrice = errors.New("zero or negative close price at initial timestamp")
)

// SeriesSource supplies a continuous candle series for a date range.
// Satisfied by *candles.Assembler.
type SeriesSource interface {
	FetchRange(ctx context.Context, symbol string, interval domain.Interval, startDate, endDate time.Time) (*domain.CandleSeries, error)
}

// Engine values portfolios against candle data from an injected source.
// Every method returns a new series; inputs are never mutated, so one
// engine can serve concurrent computations.
type Engine struct {
	source SeriesSource
	logger *log.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(source SeriesSource, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{source: source, logger: logger}
}

// BuildBenchmark fetches the benchmark's candles over the range and scales
// its close column to the initial capital: units = capital / close[0],
// value = close × units, plus log-return and cumulative-return columns.
func (e *Engine) BuildBenchmark(ctx context.Context, symbol string, interval domain.Interval, startDate, endDate time.Time, capital float64) (*domain.ValuationSeries, error) {
	if capital <= 0 {
		return nil, fmt.Errorf("%w: got %v", domain.ErrInvalidCapital, capital)
	}

	series, err := e.source.FetchRange(ctx, symbol, interval, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", symbol, err)
	}

	closes := series.Closes()
	if closes[0] <= 0 {
		return nil, fmt.Errorf("%w: benchmark %s", ErrZeroInitialPrice, symbol)
	}

	units := capital / closes[0]
	values := make([]float64, len(closes))
	for i, c := range closes {
		values[i] = c * units
	}

	rets := logReturns(values)
	v := &domain.ValuationSeries{
		OpenTimesMs:        series.OpenTimes(),
		Capital:            capital,
		BenchmarkSymbol:    symbol,
		BenchmarkValue:     values,
		BenchmarkReturn:    rets,
		BenchmarkCumReturn: cumulativeReturns(rets),
	}
	return v, nil
}

// Compute augments a benchmark-only valuation series with position, value
// and return columns for the given portfolio, returning a new series. The
// portfolio is validated before any candle data is fetched; an asset whose
// time index differs from the benchmark's aborts the computation.
func (e *Engine) Compute(ctx context.Context, base *domain.ValuationSeries, pf domain.Portfolio, interval domain.Interval, startDate, endDate time.Time) (*domain.ValuationSeries, error) {
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	if base == nil || base.Len() == 0 {
		return nil, fmt.Errorf("%w: empty benchmark series", ErrIndexMismatch)
	}

	out := base.Clone()
	out.Capital = pf.Capital
	out.Positions = make([]domain.PositionColumn, 0, len(pf.Allocations))

	n := base.Len()
	total := make([]float64, n)

	for _, alloc := range pf.Allocations {
		series, err := e.source.FetchRange(ctx, alloc.Symbol, interval, startDate, endDate)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", alloc.Symbol, err)
		}
		if err := checkAligned(base.OpenTimesMs, series); err != nil {
			return nil, err
		}

		closes := series.Closes()
		if closes[0] <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrZeroInitialPrice, alloc.Symbol)
		}

		allocation := pf.Capital * float64(alloc.Weight) / 100
		units := allocation / closes[0]

		values := make([]float64, n)
		for i, c := range closes {
			values[i] = c * units
			total[i] += values[i]
		}
		out.Positions = append(out.Positions, domain.PositionColumn{
			Symbol: alloc.Symbol,
			Units:  units,
			Values: values,
		})
	}

	out.PortfolioValue = total
	out.PortfolioReturn = logReturns(total)
	out.PortfolioCumReturn = cumulativeReturns(out.PortfolioReturn)

	e.logger.Printf("Computed portfolio of %d assets over %d rows (capital %.2f)",
		len(pf.Allocations), n, pf.Capital)
	return out, nil
}

// checkAligned verifies the asset series shares the exact benchmark index.
func checkAligned(index []int64, series *domain.CandleSeries) error {
	if series.Len() != len(index) {
		return fmt.Errorf("%w: %s has %d rows, index has %d",
			ErrIndexMismatch, series.Symbol, series.Len(), len(index))
	}
	for i, c := range series.Candles {
		if c.OpenTimeMs != index[i] {
			return fmt.Errorf("%w: %s row %d opens at %d, index has %d",
				ErrIndexMismatch, series.Symbol, i, c.OpenTimeMs, index[i])
		}
	}
	return nil
}

// logReturns computes r_t = ln(v_t / v_{t-1}); r_0 is NaN by convention.
func logReturns(values []float64) []float64 {
	rets := make([]float64, len(values))
	if len(rets) == 0 {
		return rets
	}
	rets[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		rets[i] = math.Log(values[i] / values[i-1])
	}
	return rets
}

// cumulativeReturns computes c_0 = 1, c_t = c_{t-1} * (1 + r_t).
func cumulativeReturns(rets []float64) []float64 {
	cum := make([]float64, len(rets))
	if len(cum) == 0 {
		return cum
	}
	cum[0] = 1
	for i := 1; i < len(rets); i++ {
		cum[i] = cum[i-1] * (1 + rets[i])
	}
	return cum
}
