package reporting

import (
	"errors"
	"fmt"
	"math"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"defi-portfolio-lab/internal/domain"
)

// RenderChart draws portfolio value against the benchmark as a PNG line
// chart. The series must contain a computed portfolio column.
func RenderChart(v *domain.ValuationSeries) ([]byte, error) {
	if v.Len() < 2 {
		return nil, errors.New("not enough data points to chart")
	}
	if !v.HasPortfolio() {
		return nil, errors.New("valuation has no portfolio column")
	}

	xAxis := make([]string, v.Len())
	for i, ms := range v.OpenTimesMs {
		xAxis[i] = time.UnixMilli(ms).UTC().Format("2006-01-02")
	}

	yMin, yMax := seriesBounds(v.PortfolioValue, v.BenchmarkValue)
	pad := (yMax - yMin) * 0.05
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	painter, err := charts.LineRender(
		[][]float64{v.PortfolioValue, v.BenchmarkValue},
		charts.TitleTextOptionFunc(fmt.Sprintf("Portfolio vs %s", v.BenchmarkSymbol)),
		charts.LegendLabelsOptionFunc([]string{"Portfolio", v.BenchmarkSymbol}),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xAxis, BoundaryGap: charts.FalseFlag(), SplitNumber: 10}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return painter.Bytes()
}

func seriesBounds(series ...[]float64) (float64, float64) {
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	return yMin, yMax
}
