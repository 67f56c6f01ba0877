package allocate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/deusflow/newsposter/internal/news"
)

// rankedFixture builds items already sorted by rank, as the scorer returns
// them; Order is the dedup position.
func rankedFixture(ranks []int, orders []int) []news.Ranked {
	out := make([]news.Ranked, len(ranks))
	for i := range ranks {
		out[i] = news.Ranked{
			Item:  news.Item{URL: fmt.Sprintf("https://n.example/%d", orders[i])},
			Rank:  ranks[i],
			Order: orders[i],
		}
	}
	return out
}

func TestAllocate_Exhaustive(t *testing.T) {
	for n := 0; n <= 9; n++ {
		ranks := make([]int, n)
		orders := make([]int, n)
		for i := range ranks {
			ranks[i] = n - i
			orders[i] = (i + 3) % max(n, 1)
		}
		for _, policy := range []Policy{
			DefaultPolicy(),
			{Carousel: false, PollRatio: 1},
			{Carousel: true, CarouselRule: CarouselTopRank, PollRatio: 0.5, Images: true},
		} {
			plan := New(policy, rand.New(rand.NewSource(int64(n)))).Allocate(rankedFixture(ranks, orders))

			if len(plan) != n {
				t.Fatalf("n=%d: plan has %d entries", n, len(plan))
			}
			seen := map[string]bool{}
			for _, a := range plan {
				if !a.Format.Valid() {
					t.Errorf("n=%d: invalid format %q", n, a.Format)
				}
				if seen[a.Item.URL] {
					t.Errorf("n=%d: %s allocated twice", n, a.Item.URL)
				}
				seen[a.Item.URL] = true
			}

			wantCarousel := 0
			if policy.Carousel && n > 0 {
				wantCarousel = 1
			}
			if got := plan.Count(FormatCarousel); got != wantCarousel {
				t.Errorf("n=%d: %d carousels, want %d", n, got, wantCarousel)
			}
			rest := n - wantCarousel
			if got, want := plan.Count(FormatPoll), int(policy.PollRatio*float64(rest)); got != want {
				t.Errorf("n=%d: %d polls, want %d", n, got, want)
			}
		}
	}
}

func TestAllocate_CarouselRules(t *testing.T) {
	// Ranked order: the top-ranked item was third in dedup order.
	ranked := rankedFixture([]int{4, 4, 1, 0}, []int{2, 3, 0, 1})

	first := New(Policy{Carousel: true, CarouselRule: CarouselFirst}, rand.New(rand.NewSource(1))).Allocate(ranked)
	if first[2].Format != FormatCarousel {
		t.Errorf("first rule: carousel should be dedup order 0, plan = %+v", first)
	}

	top := New(Policy{Carousel: true, CarouselRule: CarouselTopRank}, rand.New(rand.NewSource(1))).Allocate(ranked)
	if top[0].Format != FormatCarousel {
		t.Errorf("top-rank rule: carousel should be the earliest of the tied top ranks, plan = %+v", top)
	}
}

func TestAllocate_CarouselNeverPoll(t *testing.T) {
	ranked := rankedFixture([]int{3, 2, 1}, []int{0, 1, 2})
	for seed := int64(0); seed < 50; seed++ {
		plan := New(Policy{Carousel: true, PollRatio: 1}, rand.New(rand.NewSource(seed))).Allocate(ranked)
		if plan[0].Format != FormatCarousel {
			t.Fatalf("seed %d: carousel lost to poll: %+v", seed, plan)
		}
		if plan.Count(FormatPoll) != 2 {
			t.Fatalf("seed %d: want both remaining items as polls", seed)
		}
	}
}

func TestAllocate_PollSamplingIsSeeded(t *testing.T) {
	ranked := rankedFixture([]int{9, 8, 7, 6, 5, 4, 3}, []int{0, 1, 2, 3, 4, 5, 6})
	a := New(DefaultPolicy(), rand.New(rand.NewSource(7))).Allocate(ranked)
	b := New(DefaultPolicy(), rand.New(rand.NewSource(7))).Allocate(ranked)
	for i := range a {
		if a[i].Format != b[i].Format {
			t.Fatalf("same seed gave different plans at %d: %s vs %s", i, a[i].Format, b[i].Format)
		}
	}
}

func TestAllocate_ScenarioThreeItems(t *testing.T) {
	ranked := rankedFixture([]int{4, 1, 0}, []int{0, 1, 2})
	plan := New(Policy{Carousel: true, CarouselRule: CarouselTopRank, PollRatio: 0.5}, rand.New(rand.NewSource(1))).Allocate(ranked)

	if plan[0].Format != FormatCarousel {
		t.Errorf("top item should be carousel, got %s", plan[0].Format)
	}
	if plan.Count(FormatPoll) != 1 || plan.Count(FormatPlain) != 1 {
		t.Errorf("want one poll and one plain, plan = %+v", plan)
	}
}
