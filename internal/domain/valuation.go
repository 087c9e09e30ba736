package domain

// PositionColumn is the value-over-time column of one asset position
// (units held × close price).
type PositionColumn struct {
	Symbol string
	Units  float64
	Values []float64
}

// ValuationSeries is the derived table produced by the valuation engine.
// All columns share OpenTimesMs as their index. A series is constructed
// fresh per computation request and never mutated afterwards; augmenting
// a benchmark-only series with portfolio columns yields a new series.
type ValuationSeries struct {
	OpenTimesMs []int64
	Capital     float64

	BenchmarkSymbol    string
	BenchmarkValue     []float64
	BenchmarkReturn    []float64 // log returns, index 0 is NaN
	BenchmarkCumReturn []float64 // cumulative product of (1+r), index 0 is 1

	Positions          []PositionColumn
	PortfolioValue     []float64
	PortfolioReturn    []float64
	PortfolioCumReturn []float64
}

// Len returns the number of rows in the common time index.
func (v *ValuationSeries) Len() int {
	return len(v.OpenTimesMs)
}

// HasPortfolio reports whether portfolio columns have been computed.
func (v *ValuationSeries) HasPortfolio() bool {
	return len(v.PortfolioValue) > 0
}

// Clone returns a deep copy. The engine clones the benchmark-only series
// before augmenting it, keeping the input untouched.
func (v *ValuationSeries) Clone() *ValuationSeries {
	out := &ValuationSeries{
		OpenTimesMs:        append([]int64(nil), v.OpenTimesMs...),
		Capital:            v.Capital,
		BenchmarkSymbol:    v.BenchmarkSymbol,
		BenchmarkValue:     append([]float64(nil), v.BenchmarkValue...),
		BenchmarkReturn:    append([]float64(nil), v.BenchmarkReturn...),
		BenchmarkCumReturn: append([]float64(nil), v.BenchmarkCumReturn...),
		PortfolioValue:     append([]float64(nil), v.PortfolioValue...),
		PortfolioReturn:    append([]float64(nil), v.PortfolioReturn...),
		PortfolioCumReturn: append([]float64(nil), v.PortfolioCumReturn...),
	}
	for _, p := range v.Positions {
		out.Positions = append(out.Positions, PositionColumn{
			Symbol: p.Symbol,
			Units:  p.Units,
			Values: append([]float64(nil), p.Values...),
		})
	}
	return out
}
