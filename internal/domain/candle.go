package domain

import (
	"errors"
	"fmt"
	"time"
)

// Candle is one OHLCV observation for a fixed time bucket.
// OpenTimeMs is the bucket open time in Unix milliseconds.
type Candle struct {
	OpenTimeMs int64
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// OpenTime returns the candle open time as a UTC timestamp.
func (c Candle) OpenTime() time.Time {
	return time.UnixMilli(c.OpenTimeMs).UTC()
}

// Series validation errors.
var (
	// ErrSeriesOrder is returned when timestamps are not strictly increasing.
	ErrSeriesOrder = errors.New("candle timestamps not strictly increasing")

	// ErrSeriesGap is returned when two consecutive candles are further
	// apart than one interval.
	ErrSeriesGap = errors.New("gap larger than one interval in candle series")
)

// CandleSeries is an ordered sequence of candles for one symbol and interval.
type CandleSeries struct {
	Symbol   string
	Interval Interval
	Candles  []Candle
}

// Len returns the number of candles in the series.
func (s *CandleSeries) Len() int {
	return len(s.Candles)
}

// Closes returns the close-price column.
func (s *CandleSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// OpenTimes returns the open-time column in Unix milliseconds.
func (s *CandleSeries) OpenTimes() []int64 {
	times := make([]int64, len(s.Candles))
	for i, c := range s.Candles {
		times[i] = c.OpenTimeMs
	}
	return times
}

// Validate checks series continuity: strictly increasing open times (which
// also rules out duplicates) and no gap wider than one interval between
// consecutive candles. Exchange downtime therefore fails the whole series
// rather than producing silently misaligned valuations downstream.
func (s *CandleSeries) Validate() error {
	step := s.Interval.DurationMs()
	for i := 1; i < len(s.Candles); i++ {
		prev, cur := s.Candles[i-1].OpenTimeMs, s.Candles[i].OpenTimeMs
		if cur <= prev {
			return fmt.Errorf("%w: %s %s at index %d (%d <= %d)",
				ErrSeriesOrder, s.Symbol, s.Interval, i, cur, prev)
		}
		if cur-prev > step {
			return fmt.Errorf("%w: %s %s between %d and %d (%dms apart, interval %dms)",
				ErrSeriesGap, s.Symbol, s.Interval, prev, cur, cur-prev, step)
		}
	}
	return nil
}
