// Package candles retrieves historical OHLCV bars and assembles them into
// continuous, gap-checked series.
package candles

import (
	"context"
	"errors"
	"fmt"

	"defi-portfolio-lab/internal/binance"
	"defi-portfolio-lab/internal/domain"
)

// ErrNoData is returned when a requested non-empty range yields zero rows.
var ErrNoData = errors.New("no candles returned for requested range")

// KlineSource fetches one page of raw kline rows from the exchange.
// Satisfied by *binance.HTTPClient and the test stub.
type KlineSource interface {
	Klines(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64, limit int) ([]binance.Kline, error)
}

// Fetcher retrieves a single page of candles and normalizes it into a
// typed series. No retry logic lives here; a single failure propagates.
type Fetcher struct {
	source KlineSource
	limit  int
}

// NewFetcher creates a Fetcher backed by the given source. limit <= 0
// uses the exchange default page size.
func NewFetcher(source KlineSource, limit int) *Fetcher {
	return &Fetcher{source: source, limit: limit}
}

// Fetch retrieves candles for symbol/interval within the inclusive
// millisecond bounds [startMs, endMs]. Timestamps must be pre-adjusted by
// the caller for any timezone offset the data source requires.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64) (*domain.CandleSeries, error) {
	if interval.DurationMs() == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownInterval, interval)
	}
	if symbol == "" {
		return nil, errors.New("empty symbol")
	}

	klines, err := f.source.Klines(ctx, symbol, interval, startMs, endMs, f.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s [%d, %d]: %w", symbol, interval, startMs, endMs, err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("%w: %s %s [%d, %d]", ErrNoData, symbol, interval, startMs, endMs)
	}

	series := &domain.CandleSeries{
		Symbol:   symbol,
		Interval: interval,
		Candles:  make([]domain.Candle, len(klines)),
	}
	for i, k := range klines {
		series.Candles[i] = domain.Candle{
			OpenTimeMs: k.OpenTimeMs,
			Open:       k.Open,
			High:       k.High,
			Low:        k.Low,
			Close:      k.Close,
			Volume:     k.Volume,
		}
	}
	return series, nil
}
