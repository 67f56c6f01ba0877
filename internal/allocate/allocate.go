// Package allocate decides the output format of every selected item. The
// result is a strict partition: each item gets exactly one format, and the
// carousel pick is made before polls are sampled so it can never be both.
package allocate

import (
	"math"
	"math/rand"
	"time"

	"github.com/deusflow/newsposter/internal/news"
)

type Format string

const (
	FormatPlain    Format = "plain"
	FormatPoll     Format = "poll"
	FormatImage    Format = "image"
	FormatCarousel Format = "carousel"
)

func (f Format) Valid() bool {
	switch f {
	case FormatPlain, FormatPoll, FormatImage, FormatCarousel:
		return true
	}
	return false
}

// CarouselRule chooses the single carousel item.
type CarouselRule string

const (
	// CarouselFirst takes the first item in deduplicated order.
	CarouselFirst CarouselRule = "first"
	// CarouselTopRank takes the highest combined rank; ties go to the
	// earlier item in deduplicated order.
	CarouselTopRank CarouselRule = "top-rank"
)

type Policy struct {
	Carousel     bool
	CarouselRule CarouselRule
	PollRatio    float64 // share of the non-carousel items, rounded down
	Images       bool    // remaining items become image posts instead of plain
}

func DefaultPolicy() Policy {
	return Policy{
		Carousel:     true,
		CarouselRule: CarouselFirst,
		PollRatio:    0.5,
	}
}

type Assignment struct {
	news.Ranked
	Format Format
}

// Plan lists assignments in the order the items were given.
type Plan []Assignment

func (p Plan) Count(f Format) int {
	n := 0
	for _, a := range p {
		if a.Format == f {
			n++
		}
	}
	return n
}

type Allocator struct {
	policy Policy
	rng    *rand.Rand
}

func New(policy Policy, rng *rand.Rand) *Allocator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if policy.PollRatio < 0 {
		policy.PollRatio = 0
	}
	if policy.PollRatio > 1 {
		policy.PollRatio = 1
	}
	if policy.CarouselRule == "" {
		policy.CarouselRule = CarouselFirst
	}
	return &Allocator{policy: policy, rng: rng}
}

func (a *Allocator) Allocate(ranked []news.Ranked) Plan {
	plan := make(Plan, len(ranked))
	for i, r := range ranked {
		plan[i] = Assignment{Ranked: r, Format: a.defaultFormat()}
	}
	if len(plan) == 0 {
		return plan
	}

	carousel := -1
	if a.policy.Carousel {
		carousel = a.carouselIndex(ranked)
		plan[carousel].Format = FormatCarousel
	}

	rest := make([]int, 0, len(plan))
	for i := range plan {
		if i != carousel {
			rest = append(rest, i)
		}
	}

	polls := int(math.Floor(a.policy.PollRatio * float64(len(rest))))
	for _, k := range a.rng.Perm(len(rest))[:polls] {
		plan[rest[k]].Format = FormatPoll
	}
	return plan
}

func (a *Allocator) defaultFormat() Format {
	if a.policy.Images {
		return FormatImage
	}
	return FormatPlain
}

func (a *Allocator) carouselIndex(ranked []news.Ranked) int {
	best := 0
	for i := 1; i < len(ranked); i++ {
		r, b := ranked[i], ranked[best]
		switch a.policy.CarouselRule {
		case CarouselTopRank:
			if r.Rank > b.Rank || (r.Rank == b.Rank && r.Order < b.Order) {
				best = i
			}
		default:
			if r.Order < b.Order {
				best = i
			}
		}
	}
	return best
}
