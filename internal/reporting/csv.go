package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"defi-portfolio-lab/internal/domain"
)

// WriteValuationCSV streams the full valuation table as CSV: one row per
// candle with benchmark, per-asset and portfolio columns. NaN cells (the
// first return row) are written empty.
func WriteValuationCSV(w io.Writer, v *domain.ValuationSeries) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "benchmark_value", "benchmark_return", "benchmark_cum_return"}
	for _, p := range v.Positions {
		header = append(header, p.Symbol+"_value")
	}
	header = append(header, "portfolio_value", "portfolio_return", "portfolio_cum_return")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := 0; i < v.Len(); i++ {
		row := make([]string, 0, len(header))
		row = append(row,
			time.UnixMilli(v.OpenTimesMs[i]).UTC().Format("2006-01-02 15:04:05"),
			formatCell(v.BenchmarkValue[i]),
			formatCell(v.BenchmarkReturn[i]),
			formatCell(v.BenchmarkCumReturn[i]),
		)
		for _, p := range v.Positions {
			row = append(row, formatCell(p.Values[i]))
		}
		if v.HasPortfolio() {
			row = append(row,
				formatCell(v.PortfolioValue[i]),
				formatCell(v.PortfolioReturn[i]),
				formatCell(v.PortfolioCumReturn[i]),
			)
		} else {
			row = append(row, "", "", "")
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
