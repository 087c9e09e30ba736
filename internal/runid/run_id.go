// Package runid derives deterministic identifiers for portfolio runs.
package runid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"defi-portfolio-lab/internal/domain"
)

// Compute returns a deterministic run_id using SHA256 over the canonical
// run parameters:
//
//	SHA256(benchmark|interval|start|end|capital|sym:weight,...)
//
// Allocations are sorted by symbol so the id does not depend on selection
// order. Hex-encoded, 64 characters.
func Compute(benchmark string, interval domain.Interval, startDate, endDate string, capital float64, allocations []domain.Allocation) string {
	sorted := make([]domain.Allocation, len(allocations))
	copy(sorted, allocations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = fmt.Sprintf("%s:%d", a.Symbol, a.Weight)
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%.8f|%s",
		benchmark, interval, startDate, endDate, capital, strings.Join(parts, ","))

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
