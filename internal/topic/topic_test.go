package topic

import (
	"math/rand"
	"testing"
	"time"
)

var (
	testBlocks = []Block{
		{Name: "lunes", Topics: []string{"ia"}},
		{Name: "martes", Topics: []string{"datos"}},
		{Name: "miercoles", Topics: []string{"fintech"}},
		{Name: "jueves", Topics: []string{"seguridad"}},
		{Name: "viernes", Topics: []string{"startups"}},
	}
	testRegional = Block{Name: "mx", Topics: []string{"Banxico", "CNBV"}}
	weekdaysMF   = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

	wednesday = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
)

func newSelector(t *testing.T, p float64, seed int64) *Selector {
	t.Helper()
	s, err := NewSelector(testBlocks, testRegional, p, weekdaysMF, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return s
}

func TestSelect_WorkdayRotation(t *testing.T) {
	s := newSelector(t, 0, 1)
	for i := 0; i < 20; i++ {
		if got := s.Select(wednesday); got != "fintech" {
			t.Fatalf("Wednesday topic = %q, want fintech", got)
		}
	}

	monday := wednesday.AddDate(0, 0, -2)
	if got := s.Select(monday); got != "ia" {
		t.Errorf("Monday topic = %q, want ia", got)
	}
}

func TestSelect_AlwaysRegional(t *testing.T) {
	s := newSelector(t, 1, 2)
	for i := 0; i < 20; i++ {
		got := s.Select(wednesday)
		if got != "Banxico" && got != "CNBV" {
			t.Fatalf("topic = %q, want a regional topic", got)
		}
	}
}

func TestSelect_WeekendPicksAnyBlock(t *testing.T) {
	s := newSelector(t, 0, 3)
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[s.Select(saturday)] = true
	}
	if len(seen) != len(testBlocks) {
		t.Errorf("weekend draws covered %d blocks, want %d: %v", len(seen), len(testBlocks), seen)
	}
}

func TestSelect_RegionalShare(t *testing.T) {
	s := newSelector(t, DefaultRegionalProbability, 4)
	const n = 10000
	regional := 0
	for i := 0; i < n; i++ {
		switch s.Select(wednesday) {
		case "Banxico", "CNBV":
			regional++
		}
	}
	share := float64(regional) / n
	if share < 0.57 || share > 0.63 {
		t.Errorf("regional share = %.3f, want about 0.6", share)
	}
}

func TestSelect_SeedIsDeterministic(t *testing.T) {
	a := newSelector(t, 0.5, 99)
	b := newSelector(t, 0.5, 99)
	for i := 0; i < 50; i++ {
		day := saturday.AddDate(0, 0, i)
		if x, y := a.Select(day), b.Select(day); x != y {
			t.Fatalf("draw %d differs: %q vs %q", i, x, y)
		}
	}
}

func TestNewSelector_Validation(t *testing.T) {
	if _, err := NewSelector(nil, testRegional, 0.6, weekdaysMF, nil); err == nil {
		t.Error("expected error for no blocks")
	}
	if _, err := NewSelector([]Block{{Name: "vacío"}}, testRegional, 0.6, weekdaysMF, nil); err == nil {
		t.Error("expected error for empty block")
	}
	if _, err := NewSelector(testBlocks, Block{}, 0.6, weekdaysMF, nil); err == nil {
		t.Error("expected error for empty regional block")
	}
	if _, err := NewSelector(testBlocks, Block{}, 0, weekdaysMF, nil); err != nil {
		t.Errorf("regional block is optional when probability is zero: %v", err)
	}
}

func TestWeekdayIndex(t *testing.T) {
	if weekdayIndex(time.Monday) != 0 || weekdayIndex(time.Sunday) != 6 || weekdayIndex(time.Friday) != 4 {
		t.Error("weekday numbering should start at Monday = 0")
	}
}
