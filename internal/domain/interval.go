package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownInterval is returned for intervals outside the supported set.
var ErrUnknownInterval = errors.New("unknown candle interval")

// Interval is the candle bucket duration, in exchange notation.
type Interval string

// Supported candle intervals.
const (
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// intervalDurations maps each supported interval to its bucket length in ms.
var intervalDurations = map[Interval]int64{
	Interval3m:  3 * 60 * 1000,
	Interval5m:  5 * 60 * 1000,
	Interval15m: 15 * 60 * 1000,
	Interval1h:  60 * 60 * 1000,
	Interval4h:  4 * 60 * 60 * 1000,
	Interval1d:  24 * 60 * 60 * 1000,
}

// ParseInterval validates s against the supported interval set.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if _, ok := intervalDurations[iv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
	}
	return iv, nil
}

// DurationMs returns the bucket length in milliseconds.
func (i Interval) DurationMs() int64 {
	return intervalDurations[i]
}

// OffsetMs returns the duration to subtract from a full 24h window when
// stitching day pages, so the next day's first candle does not duplicate
// the previous day's last. Zero for daily bars: a daily page already ends
// on the day boundary.
func (i Interval) OffsetMs() int64 {
	if i == Interval1d {
		return 0
	}
	return intervalDurations[i]
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	return string(i)
}
