package news

import (
	"fmt"
	"sort"
	"strings"
)

const (
	MaxScore = 5
	MaxBonus = 3
)

// Ranked is an item with its computed signals. Order is the item's position
// in the deduplicated input, kept so allocation rules can refer back to it.
type Ranked struct {
	Item  Item
	Score int
	Bonus int
	Rank  int
	Order int
}

// Scorer counts keyword hits. Controversy drives the score; the disjoint
// professional-interest list adds a small bonus.
type Scorer struct {
	controversy []string
	interest    []string
}

// NewScorer normalizes both keyword lists and refuses overlapping ones, since
// a shared keyword would be counted twice in the combined rank.
func NewScorer(controversy, interest []string) (*Scorer, error) {
	s := &Scorer{
		controversy: normalizeKeywords(controversy),
		interest:    normalizeKeywords(interest),
	}

	seen := make(map[string]struct{}, len(s.controversy))
	for _, k := range s.controversy {
		seen[k] = struct{}{}
	}
	for _, k := range s.interest {
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("keyword %q is in both controversy and interest lists", k)
		}
	}
	return s, nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func countMatches(text string, keywords []string, limit int) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
			if n >= limit {
				return limit
			}
		}
	}
	return n
}

// Score is the controversy score in [0, MaxScore].
func (s *Scorer) Score(item Item) int {
	return countMatches(item.Text(), s.controversy, MaxScore)
}

// Bonus is the professional-interest bonus in [0, MaxBonus].
func (s *Scorer) Bonus(item Item) int {
	return countMatches(item.Text(), s.interest, MaxBonus)
}

// CombinedRank weighs controversy twice as much as interest.
func (s *Scorer) CombinedRank(item Item) int {
	return 2*s.Score(item) + s.Bonus(item)
}

// Rank scores every item and orders them by combined rank, highest first.
// Equal ranks keep their input order.
func (s *Scorer) Rank(items []Item) []Ranked {
	ranked := make([]Ranked, len(items))
	for i, it := range items {
		score := s.Score(it)
		bonus := s.Bonus(it)
		ranked[i] = Ranked{
			Item:  it,
			Score: score,
			Bonus: bonus,
			Rank:  2*score + bonus,
			Order: i,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank > ranked[j].Rank
	})
	return ranked
}
