package stub

import (
	"context"
	"errors"
	"fmt"

	"defi-portfolio-lab/internal/binance"
	"defi-portfolio-lab/internal/domain"
)

// KlineSource implements candles.KlineSource for testing. It serves
// deterministic synthetic bars on exact interval boundaries, so day-window
// requests stitch the same way real exchange pages do.
type KlineSource struct {
	// Prices maps symbol to a starting close price. Bars walk upward from
	// it by Step per bar unless a fixed PriceSeries entry overrides them.
	Prices map[string]float64
	Step   float64

	// PriceSeries optionally fixes exact closes per symbol, keyed from the
	// series origin bar index.
	PriceSeries map[string][]float64

	// OriginMs anchors bar index 0. Bars exist at OriginMs + n*interval.
	OriginMs int64

	// FailAt makes the request covering the given bar index fail, to
	// exercise all-or-nothing range semantics. Negative disables it.
	FailAt int

	// Calls counts Klines invocations.
	Calls int
}

// ErrInjected is returned by requests configured to fail via FailAt.
var ErrInjected = errors.New("injected fetch failure")

// NewKlineSource creates a stub source with no configured symbols.
func NewKlineSource(originMs int64) *KlineSource {
	return &KlineSource{
		Prices:      make(map[string]float64),
		PriceSeries: make(map[string][]float64),
		OriginMs:    originMs,
		Step:        1,
		FailAt:      -1,
	}
}

// Klines serves synthetic bars within [startMs, endMs], one per interval
// boundary, capped at limit rows.
func (s *KlineSource) Klines(_ context.Context, symbol string, interval domain.Interval, startMs, endMs int64, limit int) ([]binance.Kline, error) {
	s.Calls++

	base, ok := s.Prices[symbol]
	series := s.PriceSeries[symbol]
	if !ok && series == nil {
		return nil, fmt.Errorf("stub has no data for symbol %q", symbol)
	}
	if limit <= 0 {
		limit = binance.DefaultLimit
	}

	step := interval.DurationMs()
	var klines []binance.Kline
	for ts := s.OriginMs; ts <= endMs && len(klines) < limit; ts += step {
		if ts < startMs {
			continue
		}
		idx := int((ts - s.OriginMs) / step)
		if s.FailAt >= 0 && idx >= s.FailAt {
			return nil, ErrInjected
		}

		var close float64
		if idx < len(series) {
			close = series[idx]
		} else {
			close = base + float64(idx)*s.Step
		}
		klines = append(klines, binance.Kline{
			OpenTimeMs: ts,
			Open:       close,
			High:       close,
			Low:        close,
			Close:      close,
			Volume:     1000,
		})
	}
	return klines, nil
}
