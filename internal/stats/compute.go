// Package stats computes performance statistics from valuation series.
package stats

import (
	"errors"
	"fmt"
	"math"

	"defi-portfolio-lab/internal/domain"
)

// daysPerYear is the annualization base. Crypto trades every calendar day,
// so 365 is used regardless of the sampling interval; callers must feed
// daily series for the annualized figures to be meaningful.
const daysPerYear = 365.0

// Computation errors.
var (
	// ErrSeriesTooShort is returned when fewer than two observations are
	// available.
	ErrSeriesTooShort = errors.New("need at least 2 observations for statistics")

	// ErrLengthMismatch is returned when the return and value series have
	// different lengths.
	ErrLengthMismatch = errors.New("return and value series length mismatch")
)

// Compute derives a StatsReport from a value series and its log-return
// series. The first return entry is expected to be NaN and is skipped.
// The risk-free rate is implicitly zero.
func Compute(returns, values []float64) (*domain.StatsReport, error) {
	if len(returns) != len(values) {
		return nil, fmt.Errorf("%w: %d returns, %d values", ErrLengthMismatch, len(returns), len(values))
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrSeriesTooShort, len(values))
	}

	rets := dropLeadingNaN(returns)
	if len(rets) == 0 {
		return nil, fmt.Errorf("%w: no defined return observations", ErrSeriesTooShort)
	}
	n := float64(len(rets))

	mean := meanOf(rets)
	stdev := sampleStddev(rets, mean)
	downside := downsideDeviation(rets)

	// (Π(1+r))^(365/n) - 1 over simple-return equivalents of the log returns.
	compounded := 1.0
	for _, r := range rets {
		compounded *= 1 + r
	}
	annualized := math.Pow(compounded, daysPerYear/n) - 1

	maxDD := maxDrawdown(values)

	report := &domain.StatsReport{
		TotalReturn:      values[len(values)-1]/values[0] - 1,
		AnnualizedReturn: annualized,
		Sharpe:           annualizedRatio(mean, stdev),
		Sortino:          annualizedRatio(mean, downside),
		MaxDrawdown:      maxDD,
		CalmarDefined:    maxDD != 0,
	}

	if report.CalmarDefined {
		report.Calmar = mean * daysPerYear / math.Abs(maxDD)
	} else {
		// Monotonically non-decreasing series: division by zero drawdown.
		// Flagged explicitly instead of leaking an unexplained NaN.
		report.Calmar = math.Inf(1)
	}
	return report, nil
}

// dropLeadingNaN strips the undefined first return entry (and any other
// NaN, which only occurs there by construction).
func dropLeadingNaN(returns []float64) []float64 {
	out := make([]float64, 0, len(returns))
	for _, r := range returns {
		if !math.IsNaN(r) {
			out = append(out, r)
		}
	}
	return out
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStddev uses the n-1 denominator for an unbiased estimate.
func sampleStddev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// downsideDeviation is the root mean square of negative returns only,
// over the full observation count.
func downsideDeviation(xs []float64) float64 {
	sumSq := 0.0
	for _, x := range xs {
		if x < 0 {
			sumSq += x * x
		}
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// annualizedRatio scales a mean/deviation ratio by √365. A zero deviation
// yields 0 for a zero mean and signed infinity otherwise.
func annualizedRatio(mean, deviation float64) float64 {
	if deviation == 0 {
		if mean == 0 {
			return 0
		}
		return math.Inf(sign(mean))
	}
	return mean / deviation * math.Sqrt(daysPerYear)
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}

// maxDrawdown returns the minimum of value/rollingMax(value) - 1, a
// non-positive fraction.
func maxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := v/peak - 1
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
