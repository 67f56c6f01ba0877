package dedup

import (
	"context"
	"log/slog"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
)

// Checker is the part of the ledger the deduplicator needs.
type Checker interface {
	IsPublished(ctx context.Context, url, title string) (bool, error)
}

// Stats counts why items were dropped.
type Stats struct {
	Input      int
	Ineligible int // no URL
	Duplicates int
	Errors     int // ledger lookup failed; item skipped
	Kept       int
}

type Deduplicator struct {
	ledger Checker
	log    *slog.Logger
}

func New(ledger Checker, log *slog.Logger) *Deduplicator {
	return &Deduplicator{ledger: ledger, log: logger.Component(log, "dedup")}
}

// Filter returns the items not yet published, in their original order. The
// ledger is asked once per eligible item; each lookup prunes first. An item
// whose lookup fails is skipped, since it cannot be shown to be new.
func (d *Deduplicator) Filter(ctx context.Context, items []news.Item) ([]news.Item, Stats) {
	stats := Stats{Input: len(items)}
	kept := make([]news.Item, 0, len(items))

	for _, it := range items {
		if !it.Eligible() {
			stats.Ineligible++
			d.log.Debug("skipping item without url", "title", it.Title)
			continue
		}

		published, err := d.ledger.IsPublished(ctx, it.URL, it.Title)
		if err != nil {
			stats.Errors++
			d.log.Error("ledger lookup failed", "url", it.URL, "error", err)
			continue
		}
		if published {
			stats.Duplicates++
			d.log.Info("already published", "url", it.URL, "title", it.Title)
			continue
		}
		kept = append(kept, it)
	}

	stats.Kept = len(kept)
	return kept, stats
}
