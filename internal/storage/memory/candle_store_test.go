package memory

import (
	"context"
	"errors"
	"testing"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

func dailyCandles(n int, startMs int64) []domain.Candle {
	day := domain.Interval1d.DurationMs()
	out := make([]domain.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = domain.Candle{
			OpenTimeMs: startMs + int64(i)*day,
			Open:       price,
			High:       price + 1,
			Low:        price - 1,
			Close:      price,
			Volume:     10,
		}
	}
	return out
}

func TestCandleStore_InsertAndGet(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, dailyCandles(3, 0))
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	series, err := store.GetSeries(ctx, "BTCUSDT", domain.Interval1d)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if series.Len() != 3 {
		t.Errorf("Len = %d, want 3", series.Len())
	}
	if series.Symbol != "BTCUSDT" || series.Interval != domain.Interval1d {
		t.Errorf("series identity = %s/%s", series.Symbol, series.Interval)
	}
	// Ordered by open time ascending.
	for i := 1; i < series.Len(); i++ {
		if series.Candles[i].OpenTimeMs <= series.Candles[i-1].OpenTimeMs {
			t.Fatal("series not sorted by open time")
		}
	}
}

func TestCandleStore_DuplicateKey(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, dailyCandles(3, 0)); err != nil {
		t.Fatalf("first InsertBulk failed: %v", err)
	}
	err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, dailyCandles(1, 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestCandleStore_IntraBatchDuplicate(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	batch := dailyCandles(2, 0)
	batch[1].OpenTimeMs = batch[0].OpenTimeMs
	err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	// The whole batch must have been rejected.
	if _, err := store.GetSeries(ctx, "BTCUSDT", domain.Interval1d); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("partial batch was persisted: %v", err)
	}
}

func TestCandleStore_SymbolIntervalIsolation(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, dailyCandles(2, 0)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	// Same open times, different interval: no key collision.
	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1h, dailyCandles(2, 0)); err != nil {
		t.Fatalf("cross-interval insert failed: %v", err)
	}

	if _, err := store.GetSeries(ctx, "ETHUSDT", domain.Interval1d); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown symbol", err)
	}
}

func TestCandleStore_GetSeriesRange(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()
	day := domain.Interval1d.DurationMs()

	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, dailyCandles(5, 0)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Bounds are inclusive on both ends.
	series, err := store.GetSeriesRange(ctx, "BTCUSDT", domain.Interval1d, day, 3*day)
	if err != nil {
		t.Fatalf("GetSeriesRange failed: %v", err)
	}
	if series.Len() != 3 {
		t.Errorf("Len = %d, want 3", series.Len())
	}
	if series.Candles[0].OpenTimeMs != day || series.Candles[2].OpenTimeMs != 3*day {
		t.Errorf("range bounds wrong: %d..%d", series.Candles[0].OpenTimeMs, series.Candles[2].OpenTimeMs)
	}
}

func TestCandleStore_InvalidInput(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "", domain.Interval1d, dailyCandles(1, 0)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty symbol err = %v, want ErrInvalidInput", err)
	}
	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval("2m"), dailyCandles(1, 0)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("unknown interval err = %v, want ErrInvalidInput", err)
	}
	if err := store.InsertBulk(ctx, "BTCUSDT", domain.Interval1d, nil); err != nil {
		t.Errorf("empty batch err = %v, want nil", err)
	}
}
