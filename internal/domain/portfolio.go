package domain

import (
	"errors"
	"fmt"
)

// Portfolio validation errors. All are raised before any network call.
var (
	// ErrWeightSum is returned when allocation weights do not sum to exactly 100.
	ErrWeightSum = errors.New("allocation weights must sum to exactly 100")

	// ErrDuplicateSymbol is returned when the same symbol appears twice.
	ErrDuplicateSymbol = errors.New("duplicate symbol in portfolio")

	// ErrInvalidCapital is returned for a non-positive initial capital.
	ErrInvalidCapital = errors.New("initial capital must be positive")

	// ErrEmptyPortfolio is returned when no assets are selected.
	ErrEmptyPortfolio = errors.New("portfolio has no allocations")

	// ErrInvalidWeight is returned for a weight outside [0, 100].
	ErrInvalidWeight = errors.New("allocation weight must be between 0 and 100")
)

// Allocation assigns an integer percentage weight to one asset symbol.
type Allocation struct {
	Symbol string
	Weight int
}

// Portfolio is a user-selected set of weighted assets plus initial capital.
type Portfolio struct {
	Capital     float64
	Allocations []Allocation
}

// Validate checks the portfolio preconditions: positive capital, at least
// one allocation, unique symbols, weights in [0, 100] summing to exactly 100.
func (p Portfolio) Validate() error {
	if p.Capital <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidCapital, p.Capital)
	}
	if len(p.Allocations) == 0 {
		return ErrEmptyPortfolio
	}

	seen := make(map[string]struct{}, len(p.Allocations))
	sum := 0
	for _, a := range p.Allocations {
		if a.Symbol == "" {
			return fmt.Errorf("%w: empty symbol", ErrDuplicateSymbol)
		}
		if _, dup := seen[a.Symbol]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, a.Symbol)
		}
		seen[a.Symbol] = struct{}{}

		if a.Weight < 0 || a.Weight > 100 {
			return fmt.Errorf("%w: %s has weight %d", ErrInvalidWeight, a.Symbol, a.Weight)
		}
		sum += a.Weight
	}

	if sum != 100 {
		return fmt.Errorf("%w: got %d", ErrWeightSum, sum)
	}
	return nil
}

// Symbols returns the allocation symbols in declaration order.
func (p Portfolio) Symbols() []string {
	syms := make([]string, len(p.Allocations))
	for i, a := range p.Allocations {
		syms[i] = a.Symbol
	}
	return syms
}
