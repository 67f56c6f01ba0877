// Package topic picks the query a run searches for. Coverage is weighted but
// not predictable: a regional block wins most of the time, otherwise work days
// rotate through the blocks and other days pick one at random.
package topic

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const DefaultRegionalProbability = 0.6

type Block struct {
	Name   string
	Topics []string
}

type Selector struct {
	blocks    []Block
	regional  Block
	pRegional float64
	workdays  map[time.Weekday]bool
	rng       *rand.Rand
}

// NewSelector validates the blocks up front so Select never has to fail.
func NewSelector(blocks []Block, regional Block, pRegional float64, workdays []time.Weekday, rng *rand.Rand) (*Selector, error) {
	if len(blocks) == 0 {
		return nil, errors.New("topic: no blocks configured")
	}
	for _, b := range blocks {
		if len(b.Topics) == 0 {
			return nil, fmt.Errorf("topic: block %q has no topics", b.Name)
		}
	}
	if pRegional < 0 || pRegional > 1 {
		return nil, fmt.Errorf("topic: regional probability %v out of range", pRegional)
	}
	if pRegional > 0 && len(regional.Topics) == 0 {
		return nil, errors.New("topic: regional probability set but regional block is empty")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	days := make(map[time.Weekday]bool, len(workdays))
	for _, d := range workdays {
		days[d] = true
	}

	return &Selector{
		blocks:    blocks,
		regional:  regional,
		pRegional: pRegional,
		workdays:  days,
		rng:       rng,
	}, nil
}

// Select returns one topic for a run starting at now.
func (s *Selector) Select(now time.Time) string {
	block := s.pickBlock(now)
	return block.Topics[s.rng.Intn(len(block.Topics))]
}

func (s *Selector) pickBlock(now time.Time) Block {
	if s.pRegional > 0 && s.rng.Float64() < s.pRegional {
		return s.regional
	}
	if s.workdays[now.Weekday()] {
		return s.blocks[weekdayIndex(now.Weekday())%len(s.blocks)]
	}
	return s.blocks[s.rng.Intn(len(s.blocks))]
}

// weekdayIndex numbers days from Monday = 0 to Sunday = 6.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
