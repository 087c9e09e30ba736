package candles

import (
	"context"
	"time"
)

// DefaultPageDelay is the pause between consecutive page fetches, chosen to
// stay well under the exchange request-weight limits for an interactive user.
const DefaultPageDelay = 200 * time.Millisecond

// Pacer throttles consecutive page fetches. Implementations decide the
// policy; the assembler only promises to call Pace between pages.
type Pacer interface {
	Pace(ctx context.Context) error
}

// FixedDelayPacer pauses a constant duration between pages, honouring
// context cancellation.
type FixedDelayPacer struct {
	Delay time.Duration
}

// NewFixedDelayPacer creates a pacer with the given inter-page delay.
func NewFixedDelayPacer(delay time.Duration) *FixedDelayPacer {
	return &FixedDelayPacer{Delay: delay}
}

// Pace blocks for the configured delay or until ctx is cancelled.
func (p *FixedDelayPacer) Pace(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Delay):
		return nil
	}
}

// NopPacer skips pacing entirely. Only for tests with stubbed sources.
type NopPacer struct{}

// Pace returns immediately.
func (NopPacer) Pace(context.Context) error { return nil }

var (
	_ Pacer = (*FixedDelayPacer)(nil)
	_ Pacer = NopPacer{}
)
