package news

import (
	"strings"
	"testing"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(
		[]string{"multa", "fraude", "crisis", "demanda", "hackeo", "despidos", "polémica"},
		[]string{"fintech", "datos", "inteligencia artificial", "banca"},
	)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func TestScore(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name  string
		item  Item
		score int
		bonus int
	}{
		{"no signal", Item{Title: "Llega la primavera"}, 0, 0},
		{"case insensitive", Item{Title: "CNBV impone MULTA a fintech"}, 1, 1},
		{"description counts", Item{Title: "Banco", Description: "Una demanda por fraude"}, 2, 0},
		{"keyword counted once", Item{Title: "multa multa multa"}, 1, 0},
		{
			"score capped at five",
			Item{Title: "multa fraude crisis demanda hackeo despidos polémica"},
			5, 0,
		},
		{
			"bonus capped at three",
			Item{Title: "fintech datos inteligencia artificial banca"},
			0, 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.item); got != tt.score {
				t.Errorf("Score() = %d, want %d", got, tt.score)
			}
			if got := s.Bonus(tt.item); got != tt.bonus {
				t.Errorf("Bonus() = %d, want %d", got, tt.bonus)
			}
			if got := s.CombinedRank(tt.item); got != 2*tt.score+tt.bonus {
				t.Errorf("CombinedRank() = %d, want %d", got, 2*tt.score+tt.bonus)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer(t)
	texts := []string{
		"",
		"multa",
		strings.Repeat("multa fraude crisis demanda hackeo despidos polémica ", 20),
		"fintech fintech fintech datos banca inteligencia artificial",
	}
	for _, text := range texts {
		it := Item{Title: text, Description: text}
		if got := s.Score(it); got < 0 || got > MaxScore {
			t.Errorf("Score(%q) = %d out of [0,%d]", text, got, MaxScore)
		}
		if got := s.Bonus(it); got < 0 || got > MaxBonus {
			t.Errorf("Bonus(%q) = %d out of [0,%d]", text, got, MaxBonus)
		}
	}
}

func TestRank_StableDescending(t *testing.T) {
	s := newTestScorer(t)
	items := []Item{
		{URL: "a", Title: "nada"},
		{URL: "b", Title: "multa y fraude en fintech"},
		{URL: "c", Title: "otra cosa"},
		{URL: "d", Title: "crisis"},
		{URL: "e", Title: "hackeo"},
	}

	ranked := s.Rank(items)

	var order []string
	for _, r := range ranked {
		order = append(order, r.Item.URL)
	}
	got := strings.Join(order, ",")
	if want := "b,d,e,a,c"; got != want {
		t.Errorf("Rank order = %s, want %s", got, want)
	}
	if ranked[0].Rank != 5 || ranked[0].Order != 1 {
		t.Errorf("top = %+v", ranked[0])
	}
}

func TestNewScorer_RejectsOverlap(t *testing.T) {
	if _, err := NewScorer([]string{"Multa"}, []string{" multa "}); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestEligible(t *testing.T) {
	if (Item{URL: "   "}).Eligible() {
		t.Error("blank URL should not be eligible")
	}
	if !(Item{URL: "https://example.com/a"}).Eligible() {
		t.Error("item with URL should be eligible")
	}
}

func TestFallbackSummary(t *testing.T) {
	in := "Corto. Esta es una oración suficientemente larga para contar. Y esta otra también supera el mínimo. Tercera frase que ya no entra en el resumen."
	got := FallbackSummary(in)
	want := "Esta es una oración suficientemente larga para contar. Y esta otra también supera el mínimo."
	if got != want {
		t.Errorf("FallbackSummary() = %q, want %q", got, want)
	}
	if FallbackSummary("  ") != "" {
		t.Error("empty content should give empty summary")
	}
}
