package reporting

import (
	"fmt"
	"strings"
)

// RenderMarkdown produces the run summary as a markdown document with a
// side-by-side portfolio vs benchmark statistics table.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Run ID: `%s`\n\n", r.RunID)

	fmt.Fprintf(&b, "## Parameters\n\n")
	fmt.Fprintf(&b, "| Parameter | Value |\n")
	fmt.Fprintf(&b, "|-----------|-------|\n")
	fmt.Fprintf(&b, "| Benchmark | %s |\n", r.Benchmark)
	fmt.Fprintf(&b, "| Interval | %s |\n", r.Interval)
	fmt.Fprintf(&b, "| Range | %s to %s |\n", r.StartDate, r.EndDate)
	fmt.Fprintf(&b, "| Capital | %.2f |\n", r.Capital)
	fmt.Fprintf(&b, "| Rows | %d |\n", r.Rows)
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## Allocations\n\n")
	fmt.Fprintf(&b, "| Symbol | Weight %% | Allocated |\n")
	fmt.Fprintf(&b, "|--------|----------|-----------|\n")
	for _, a := range r.Allocations {
		fmt.Fprintf(&b, "| %s | %d | %.2f |\n", a.Symbol, a.Weight, r.Capital*float64(a.Weight)/100)
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## Performance\n\n")
	fmt.Fprintf(&b, "| Metric | Portfolio | %s |\n", r.Benchmark)
	fmt.Fprintf(&b, "|--------|-----------|----------|\n")
	for _, row := range r.Metrics {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", row.Name, row.Portfolio, row.Benchmark)
	}

	return b.String()
}
