package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"defi-portfolio-lab/internal/observability"
)

// WriteFiles renders the report to markdown, CSV and PNG files under dir.
// File names are keyed by the short run ID so repeated runs overwrite
// their own outputs.
func WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	short := r.RunID
	if len(short) > 12 {
		short = short[:12]
	}

	mdPath := filepath.Join(dir, fmt.Sprintf("report_%s.md", short))
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	csvPath := filepath.Join(dir, fmt.Sprintf("valuation_%s.csv", short))
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create valuation csv: %w", err)
	}
	if err := WriteValuationCSV(f, r.Valuation); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close valuation csv: %w", err)
	}

	png, err := RenderChart(r.Valuation)
	if err != nil {
		return err
	}
	chartPath := filepath.Join(dir, fmt.Sprintf("chart_%s.png", short))
	if err := os.WriteFile(chartPath, png, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	observability.RecordReportRendered()
	return nil
}
