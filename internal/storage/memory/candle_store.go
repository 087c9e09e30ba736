// Package memory provides in-memory store implementations for tests and
// single-shot pipeline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]domain.Candle // keyed by (symbol, interval, open_time_ms)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{data: make(map[string]domain.Candle)}
}

func candleKey(symbol string, interval domain.Interval, openTimeMs int64) string {
	return fmt.Sprintf("%s|%s|%d", symbol, interval, openTimeMs)
}

// InsertBulk adds candles for one symbol+interval. Fails the entire batch
// on any duplicate, including intra-batch duplicates.
func (s *CandleStore) InsertBulk(_ context.Context, symbol string, interval domain.Interval, candles []domain.Candle) error {
	if symbol == "" || interval.DurationMs() == 0 {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(candles))
	for _, c := range candles {
		key := candleKey(symbol, interval, c.OpenTimeMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, c := range candles {
		s.data[candleKey(symbol, interval, c.OpenTimeMs)] = c
	}
	return nil
}

// GetSeries retrieves all candles for symbol+interval, ordered by open time ASC.
func (s *CandleStore) GetSeries(ctx context.Context, symbol string, interval domain.Interval) (*domain.CandleSeries, error) {
	return s.collect(symbol, interval, func(domain.Candle) bool { return true })
}

// GetSeriesRange retrieves candles within [startMs, endMs] inclusive.
func (s *CandleStore) GetSeriesRange(_ context.Context, symbol string, interval domain.Interval, startMs, endMs int64) (*domain.CandleSeries, error) {
	return s.collect(symbol, interval, func(c domain.Candle) bool {
		return c.OpenTimeMs >= startMs && c.OpenTimeMs <= endMs
	})
}

func (s *CandleStore) collect(symbol string, interval domain.Interval, keep func(domain.Candle) bool) (*domain.CandleSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("%s|%s|", symbol, interval)
	var candles []domain.Candle
	for key, c := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix && keep(c) {
			candles = append(candles, c)
		}
	}
	if len(candles) == 0 {
		return nil, storage.ErrNotFound
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTimeMs < candles[j].OpenTimeMs
	})

	return &domain.CandleSeries{Symbol: symbol, Interval: interval, Candles: candles}, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
