package runid

import (
	"testing"

	"defi-portfolio-lab/internal/domain"
)

func TestComputeDeterministic(t *testing.T) {
	allocs := []domain.Allocation{
		{Symbol: "UNIUSDT", Weight: 60},
		{Symbol: "LDOUSDT", Weight: 40},
	}
	a := Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000, allocs)
	b := Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000, allocs)
	if a != b {
		t.Fatalf("same parameters produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("id length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeOrderIndependent(t *testing.T) {
	a := Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000,
		[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 60}, {Symbol: "LDOUSDT", Weight: 40}})
	b := Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000,
		[]domain.Allocation{{Symbol: "LDOUSDT", Weight: 40}, {Symbol: "UNIUSDT", Weight: 60}})
	if a != b {
		t.Fatal("allocation order changed the run id")
	}
}

func TestComputeSensitivity(t *testing.T) {
	base := Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000,
		[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 100}})

	variants := []string{
		Compute("ETHUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000,
			[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 100}}),
		Compute("BTCUSDT", domain.Interval1h, "2021-01-01", "2021-01-10", 5000,
			[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 100}}),
		Compute("BTCUSDT", domain.Interval1d, "2021-01-02", "2021-01-10", 5000,
			[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 100}}),
		Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 6000,
			[]domain.Allocation{{Symbol: "UNIUSDT", Weight: 100}}),
		Compute("BTCUSDT", domain.Interval1d, "2021-01-01", "2021-01-10", 5000,
			[]domain.Allocation{{Symbol: "LDOUSDT", Weight: 100}}),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with the base id", i)
		}
	}
}
