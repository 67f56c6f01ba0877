package app

import (
	"time"

	"github.com/deusflow/newsposter/internal/allocate"
	"github.com/deusflow/newsposter/internal/dedup"
	"github.com/deusflow/newsposter/internal/publish"
)

type ItemState string

const (
	StatePublished ItemState = "published"
	StateSkipped   ItemState = "skipped"
)

type ItemReport struct {
	URL       string
	Title     string
	Rank      int
	Planned   allocate.Format
	Format    allocate.Format // what was actually posted
	State     ItemState
	Result    publish.Result
	LedgerErr string
}

// Report summarizes one run.
type Report struct {
	StartedAt time.Time
	Topic     string
	Fetched   int
	Dedup     dedup.Stats
	Selected  int
	EarlyExit bool
	Items     []ItemReport
}

func (r Report) Published() int {
	n := 0
	for _, it := range r.Items {
		if it.State == StatePublished {
			n++
		}
	}
	return n
}
