// Package csvcache persists candle series as local CSV files using a
// deterministic naming scheme that encodes symbol, interval, row count and
// date range: {symbol}_{interval}_{rows}_{start}_{end}.csv
package csvcache

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"defi-portfolio-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// header matches the backtesting-friendly column convention.
var header = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Cache reads and writes candle series CSV files under one directory.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// FileName returns the deterministic cache file name for a series.
func FileName(s *domain.CandleSeries) string {
	first := time.UnixMilli(s.Candles[0].OpenTimeMs).UTC().Format(dateLayout)
	last := time.UnixMilli(s.Candles[s.Len()-1].OpenTimeMs).UTC().Format(dateLayout)
	return fmt.Sprintf("%s_%s_%d_%s_%s.csv", s.Symbol, s.Interval, s.Len(), first, last)
}

// SaveSeries writes the series to its deterministic file, overwriting any
// previous file of the same name. Implements candles.CandleWriter.
func (c *Cache) SaveSeries(_ context.Context, s *domain.CandleSeries) error {
	if s == nil || s.Len() == 0 {
		return fmt.Errorf("refusing to save empty series")
	}

	path := filepath.Join(c.dir, FileName(s))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, candle := range s.Candles {
		row := []string{
			candle.OpenTime().Format(time.DateTime),
			formatPrice(candle.Open),
			formatPrice(candle.High),
			formatPrice(candle.Low),
			formatPrice(candle.Close),
			formatPrice(candle.Volume),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush cache file: %w", err)
	}
	return nil
}

// Load reads a cache file back into a candle series. Symbol, interval and
// expected row count are recovered from the file name and the row count is
// verified against the file contents.
func (c *Cache) Load(name string) (*domain.CandleSeries, error) {
	symbol, interval, wantRows, err := parseFileName(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cache file %s has no data rows", name)
	}

	series := &domain.CandleSeries{Symbol: symbol, Interval: interval}
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+1, len(header), len(rec))
		}
		ts, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		candle := domain.Candle{OpenTimeMs: ts.UnixMilli()}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		for j, dst := range fields {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, header[j+1], err)
			}
			*dst = v
		}
		series.Candles = append(series.Candles, candle)
	}

	if series.Len() != wantRows {
		return nil, fmt.Errorf("cache file %s encodes %d rows but contains %d", name, wantRows, series.Len())
	}
	return series, nil
}

// Path returns the absolute path a series would be saved under.
func (c *Cache) Path(s *domain.CandleSeries) string {
	return filepath.Join(c.dir, FileName(s))
}

func parseFileName(name string) (string, domain.Interval, int, error) {
	base := strings.TrimSuffix(name, ".csv")
	parts := strings.Split(base, "_")
	if len(parts) != 5 {
		return "", "", 0, fmt.Errorf("cache file name %q does not match symbol_interval_rows_start_end", name)
	}

	interval, err := domain.ParseInterval(parts[1])
	if err != nil {
		return "", "", 0, fmt.Errorf("cache file name %q: %w", name, err)
	}
	rows, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, fmt.Errorf("cache file name %q: row count: %w", name, err)
	}
	return parts[0], interval, rows, nil
}

// parseDate accepts both date-time and bare date forms, since daily series
// save midnight timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateTime, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
