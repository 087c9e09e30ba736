package candles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/observability"
)

const dayMs = 24 * 60 * 60 * 1000

// DefaultTZOffset shifts page bounds so no candle opens exactly on a page
// boundary. The exchange treats both request bounds as inclusive, so a
// daily page ending at midnight would return the next day's bar too and
// adjacent pages would overlap.
const DefaultTZOffset = 2 * time.Hour

// ErrInvalidRange is returned when the end date precedes the start date.
var ErrInvalidRange = errors.New("end date precedes start date")

// CandleWriter persists an assembled series. Satisfied by the CSV cache
// and by store-backed adapters.
type CandleWriter interface {
	SaveSeries(ctx context.Context, s *domain.CandleSeries) error
}

// Assembler drives the fetcher across a multi-day range, one page per
// calendar day, and stitches the pages into a single continuous series.
// Range fetches are all-or-nothing: any page failure discards the partial
// result.
type Assembler struct {
	fetcher  *Fetcher
	pacer    Pacer
	tzOffset time.Duration
	logger   *log.Logger
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	Source KlineSource
	// Limit is the per-page row cap passed to the source; 0 uses the
	// exchange default.
	Limit int
	// Pacer throttles between pages. Nil uses a fixed 200ms delay.
	Pacer Pacer
	// TZOffset is added to the epoch-millisecond bounds of every page,
	// compensating for the timezone the data source keys its days to.
	// Zero uses DefaultTZOffset.
	TZOffset time.Duration
	Logger   *log.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(opts AssemblerOptions) *Assembler {
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NewFixedDelayPacer(DefaultPageDelay)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	tzOffset := opts.TZOffset
	if tzOffset == 0 {
		tzOffset = DefaultTZOffset
	}
	return &Assembler{
		fetcher:  NewFetcher(opts.Source, opts.Limit),
		pacer:    pacer,
		tzOffset: tzOffset,
		logger:   logger,
	}
}

// FetchRange assembles candles for every calendar day in [startDate,
// endDate], both endpoints inclusive. Dates are truncated to UTC midnight.
// The stitched series is validated for strict ordering and for gaps wider
// than one interval before being returned; a gap (exchange downtime,
// listing boundary) fails the whole range.
func (a *Assembler) FetchRange(ctx context.Context, symbol string, interval domain.Interval, startDate, endDate time.Time) (*domain.CandleSeries, error) {
	if interval.DurationMs() == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownInterval, interval)
	}

	start := truncateToDay(startDate)
	end := truncateToDay(endDate)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	days := int(end.Sub(start).Hours()/24) + 1

	// A sub-daily day window ends one interval short of the next midnight
	// so the following page's first candle is not a duplicate.
	offset := interval.OffsetMs()
	window := int64(dayMs) - offset

	started := time.Now()
	series := &domain.CandleSeries{Symbol: symbol, Interval: interval}
	startMs := start.UnixMilli() + a.tzOffset.Milliseconds()

	for day := 0; day < days; day++ {
		endMs := startMs + window

		page, err := a.fetcher.Fetch(ctx, symbol, interval, startMs, endMs)
		if err != nil {
			observability.RecordPageError(symbol)
			return nil, fmt.Errorf("range fetch day %d/%d: %w", day+1, days, err)
		}
		series.Candles = append(series.Candles, page.Candles...)
		observability.RecordPageAssembled(symbol)

		startMs = endMs + offset
		if day < days-1 {
			if err := a.pacer.Pace(ctx); err != nil {
				return nil, fmt.Errorf("pacing between pages: %w", err)
			}
		}
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("assembled range %s..%s: %w",
			start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	}

	a.logger.Printf("Assembled %d candles for %s %s over %d days in %v",
		series.Len(), symbol, interval, days, time.Since(started))
	return series, nil
}

// SaveRange assembles the range and hands the series to w instead of
// returning it, for cache warm-up style usage.
func (a *Assembler) SaveRange(ctx context.Context, symbol string, interval domain.Interval, startDate, endDate time.Time, w CandleWriter) error {
	series, err := a.FetchRange(ctx, symbol, interval, startDate, endDate)
	if err != nil {
		return err
	}
	if err := w.SaveSeries(ctx, series); err != nil {
		return fmt.Errorf("persist assembled series: %w", err)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
