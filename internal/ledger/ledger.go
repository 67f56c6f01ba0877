// Package ledger remembers what has been published so a run never posts the
// same story twice. Matching is exact on URL and fuzzy on the title, over a
// sliding retention window.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/storage"
)

const (
	DefaultRetention = 7 * 24 * time.Hour
	DefaultThreshold = 0.8
)

// Match explains why an item counts as already published.
type Match struct {
	Published  bool
	Reason     string // "url" or "title"
	RecordURL  string
	Similarity float64
}

type Ledger struct {
	store     storage.Store
	retention time.Duration
	threshold float64
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*Ledger)

func WithRetention(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.retention = d
		}
	}
}

func WithThreshold(t float64) Option {
	return func(l *Ledger) {
		if t > 0 && t <= 1 {
			l.threshold = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		retention: DefaultRetention,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logger.Component(l.log, "ledger")
	return l
}

// IsPublished reports whether url or a near-identical title was published
// within the retention window.
func (l *Ledger) IsPublished(ctx context.Context, url, title string) (bool, error) {
	m, err := l.Check(ctx, url, title)
	return m.Published, err
}

// Check prunes expired records and then looks for an exact URL match or a
// title whose fingerprint similarity reaches the threshold.
func (l *Ledger) Check(ctx context.Context, url, title string) (Match, error) {
	if _, err := l.Prune(ctx); err != nil {
		return Match{}, fmt.Errorf("prune ledger: %w", err)
	}

	url = strings.TrimSpace(url)
	if url != "" {
		urls, err := l.store.LoadURLs(ctx)
		if err != nil {
			return Match{}, fmt.Errorf("load published urls: %w", err)
		}
		for _, u := range urls {
			if u == url {
				return Match{Published: true, Reason: "url", RecordURL: u, Similarity: 1}, nil
			}
		}
	}

	recs, err := l.store.Load(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("load records: %w", err)
	}

	fp := Fingerprint(title)
	for _, rec := range recs {
		if url != "" && rec.URL == url {
			return Match{Published: true, Reason: "url", RecordURL: rec.URL, Similarity: 1}, nil
		}
		if sim := Jaccard(fp, rec.TitleFingerprint); sim >= l.threshold {
			l.log.Debug("title matches published record",
				"title", title, "record_url", rec.URL, "similarity", sim)
			return Match{Published: true, Reason: "title", RecordURL: rec.URL, Similarity: sim}, nil
		}
	}
	return Match{}, nil
}

// MarkPublished records url and the fingerprint of title at the current time.
func (l *Ledger) MarkPublished(ctx context.Context, url, title string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("cannot mark an item without url as published")
	}

	rec := storage.Record{
		ID:               uuid.NewString(),
		URL:              url,
		Title:            title,
		Timestamp:        l.now().UTC().Format(time.RFC3339Nano),
		TitleFingerprint: Fingerprint(title),
	}
	if err := l.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := l.store.AppendURL(ctx, url); err != nil {
		return fmt.Errorf("append url: %w", err)
	}

	l.log.Debug("marked as published", "url", url, "fingerprint", rec.TitleFingerprint)
	return nil
}

// Prune drops records older than the retention window and records whose
// timestamp cannot be parsed, then trims the URL list to the URLs that still
// have a record so an expired story cannot keep matching by URL.
func (l *Ledger) Prune(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.retention)

	removed, err := l.store.Prune(ctx, func(rec storage.Record) bool {
		ts, ok := parseTimestamp(rec.Timestamp)
		if !ok {
			l.log.Warn("dropping record with unparsable timestamp",
				"url", rec.URL, "timestamp", rec.Timestamp)
			return false
		}
		return !ts.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}

	if err := l.syncURLs(ctx); err != nil {
		return removed, err
	}

	if removed > 0 {
		l.log.Info("pruned expired records", "removed", removed, "cutoff", cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

func (l *Ledger) syncURLs(ctx context.Context) error {
	recs, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	live := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		live[rec.URL] = struct{}{}
	}

	urls, err := l.store.LoadURLs(ctx)
	if err != nil {
		return fmt.Errorf("load published urls: %w", err)
	}
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := live[u]; ok {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(urls) {
		return nil
	}
	if err := l.store.RewriteURLs(ctx, kept); err != nil {
		return fmt.Errorf("rewrite published urls: %w", err)
	}
	return nil
}

// Accepted timestamp layouts. The zone-less one matches records written by
// the earlier script version, read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
