package random

import (
	"math"
	"testing"
	"time"
)

func TestChance_Boundaries(t *testing.T) {
	s := New()

	for i := 0; i < 1000; i++ {
		if s.Chance(0) {
			t.Fatal("Chance(0) fired")
		}
		if s.Chance(-0.5) {
			t.Fatal("Chance(-0.5) fired")
		}
		if !s.Chance(1) {
			t.Fatal("Chance(1) did not fire")
		}
		if !s.Chance(3) {
			t.Fatal("Chance(3) did not fire")
		}
	}
}

func TestChance_Frequency(t *testing.T) {
	tests := []float64{0.1, 0.25, 0.5, 0.9}

	for _, rate := range tests {
		s := NewSeeded(42)
		const trials = 20000
		hits := 0
		for i := 0; i < trials; i++ {
			if s.Chance(rate) {
				hits++
			}
		}
		got := float64(hits) / trials
		if math.Abs(got-rate) > 0.03 {
			t.Errorf("Chance(%v) frequency = %v, want within 0.03", rate, got)
		}
	}
}

func TestSeed_Deterministic(t *testing.T) {
	a := NewSeeded(1234)
	b := NewSeeded(1234)

	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v != %v", i, x, y)
		}
	}
}

func TestSeed_KnownSequence(t *testing.T) {
	s := NewSeeded(1)
	// (1*1103515245 + 12345) & 0x7fffffff
	want := float64(1103527590) / (1 << 31)
	if got := s.Float64(); got != want {
		t.Errorf("first draw = %v, want %v", got, want)
	}
}

func TestSeed_Reseed(t *testing.T) {
	s := NewSeeded(7)
	first := []float64{s.Float64(), s.Float64(), s.Float64()}

	s.Seed(7)
	for i, want := range first {
		if got := s.Float64(); got != want {
			t.Errorf("draw %d after reseed = %v, want %v", i, got, want)
		}
	}
}

func TestReset(t *testing.T) {
	s := NewSeeded(7)
	s.Reset()
	if s.Seeded() {
		t.Error("Seeded() = true after Reset")
	}
	v := s.Float64()
	if v < 0 || v >= 1 {
		t.Errorf("Float64() = %v, want [0,1)", v)
	}
}

func TestBetween(t *testing.T) {
	s := NewSeeded(99)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := s.Between(3, 6)
		if v < 3 || v > 6 {
			t.Fatalf("Between(3,6) = %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("Between(3,6) produced %d distinct values, want 4", len(seen))
	}

	if v := s.Between(5, 5); v != 5 {
		t.Errorf("Between(5,5) = %d", v)
	}
	if v := s.Between(9, 2); v < 2 || v > 9 {
		t.Errorf("Between(9,2) = %d", v)
	}
}

func TestDurationBetween(t *testing.T) {
	s := NewSeeded(5)
	for i := 0; i < 100; i++ {
		d := s.DurationBetween(100*time.Millisecond, 200*time.Millisecond)
		if d < 100*time.Millisecond || d > 200*time.Millisecond {
			t.Fatalf("DurationBetween = %v", d)
		}
	}
}

func TestPick(t *testing.T) {
	s := NewSeeded(3)

	if _, ok := Pick(s, []string{}); ok {
		t.Error("Pick(empty) ok = true")
	}

	items := []string{"a", "b", "c"}
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		v, ok := Pick(s, items)
		if !ok {
			t.Fatal("Pick ok = false")
		}
		counts[v]++
	}
	for _, item := range items {
		if counts[item] < 800 {
			t.Errorf("Pick chose %q %d times, want roughly 1000", item, counts[item])
		}
	}
}
