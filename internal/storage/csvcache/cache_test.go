package csvcache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"defi-portfolio-lab/internal/domain"
)

func testSeries(t *testing.T, n int) *domain.CandleSeries {
	t.Helper()
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	day := domain.Interval1d.DurationMs()

	s := &domain.CandleSeries{Symbol: "BTCUSDT", Interval: domain.Interval1d}
	for i := 0; i < n; i++ {
		price := 30000 + float64(i)*12.5
		s.Candles = append(s.Candles, domain.Candle{
			OpenTimeMs: start + int64(i)*day,
			Open:       price,
			High:       price + 50,
			Low:        price - 50,
			Close:      price + 10,
			Volume:     1234.5678,
		})
	}
	return s
}

func TestFileName(t *testing.T) {
	s := testSeries(t, 10)
	got := FileName(s)
	want := "BTCUSDT_1d_10_2021-01-01_2021-01-10.csv"
	if got != want {
		t.Fatalf("FileName = %q, want %q", got, want)
	}
}

func TestSaveAndLoad(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := testSeries(t, 10)
	if err := cache.SaveSeries(context.Background(), s); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	loaded, err := cache.Load(FileName(s))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Symbol != s.Symbol || loaded.Interval != s.Interval {
		t.Errorf("identity = %s/%s", loaded.Symbol, loaded.Interval)
	}
	if loaded.Len() != s.Len() {
		t.Fatalf("Len = %d, want %d", loaded.Len(), s.Len())
	}
	for i := range s.Candles {
		if loaded.Candles[i] != s.Candles[i] {
			t.Fatalf("candle %d differs: %+v vs %+v", i, loaded.Candles[i], s.Candles[i])
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := testSeries(t, 5)
	if err := cache.SaveSeries(context.Background(), s); err != nil {
		t.Fatalf("first SaveSeries: %v", err)
	}
	s.Candles[0].Close = 99999
	if err := cache.SaveSeries(context.Background(), s); err != nil {
		t.Fatalf("second SaveSeries: %v", err)
	}

	loaded, err := cache.Load(FileName(s))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Candles[0].Close != 99999 {
		t.Errorf("Close = %v, want overwritten value", loaded.Candles[0].Close)
	}
}

func TestSaveEmptySeries(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := cache.SaveSeries(context.Background(), &domain.CandleSeries{Symbol: "BTCUSDT", Interval: domain.Interval1d}); err == nil {
		t.Fatal("empty series saved without error")
	}
}

func TestLoadRowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := testSeries(t, 5)
	if err := cache.SaveSeries(context.Background(), s); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	// Rename claims 7 rows while the file holds 5.
	bogus := "BTCUSDT_1d_7_2021-01-01_2021-01-05.csv"
	if err := os.Rename(filepath.Join(dir, FileName(s)), filepath.Join(dir, bogus)); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if _, err := cache.Load(bogus); err == nil || !strings.Contains(err.Error(), "encodes 7 rows") {
		t.Fatalf("err = %v, want row count mismatch", err)
	}
}

func TestLoadMalformedName(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cache.Load("notacachefile.csv"); err == nil {
		t.Fatal("malformed name loaded without error")
	}
	if _, err := cache.Load("BTCUSDT_2m_5_2021-01-01_2021-01-05.csv"); err == nil {
		t.Fatal("unknown interval loaded without error")
	}
}
