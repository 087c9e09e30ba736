package domain

import (
	"errors"
	"testing"
)

func TestParseInterval(t *testing.T) {
	for _, s := range []string{"3m", "5m", "15m", "1h", "4h", "1d"} {
		iv, err := ParseInterval(s)
		if err != nil {
			t.Fatalf("ParseInterval(%q): %v", s, err)
		}
		if iv.String() != s {
			t.Errorf("ParseInterval(%q) = %q", s, iv)
		}
	}
}

func TestParseIntervalUnknown(t *testing.T) {
	for _, s := range []string{"", "2m", "1w", "1M", "1D"} {
		if _, err := ParseInterval(s); !errors.Is(err, ErrUnknownInterval) {
			t.Errorf("ParseInterval(%q) err = %v, want ErrUnknownInterval", s, err)
		}
	}
}

func TestIntervalDurationMs(t *testing.T) {
	cases := map[Interval]int64{
		Interval3m:  180_000,
		Interval5m:  300_000,
		Interval15m: 900_000,
		Interval1h:  3_600_000,
		Interval4h:  14_400_000,
		Interval1d:  86_400_000,
	}
	for iv, want := range cases {
		if got := iv.DurationMs(); got != want {
			t.Errorf("%s DurationMs = %d, want %d", iv, got, want)
		}
	}
}

func TestIntervalOffsetMs(t *testing.T) {
	// Daily pages already end on the day boundary, so the stitch offset is
	// zero; every sub-daily interval offsets by its own duration.
	if got := Interval1d.OffsetMs(); got != 0 {
		t.Errorf("1d OffsetMs = %d, want 0", got)
	}
	for _, iv := range []Interval{Interval3m, Interval5m, Interval15m, Interval1h, Interval4h} {
		if got := iv.OffsetMs(); got != iv.DurationMs() {
			t.Errorf("%s OffsetMs = %d, want %d", iv, got, iv.DurationMs())
		}
	}
}
