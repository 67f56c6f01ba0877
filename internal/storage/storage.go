// Package storage persists the publication ledger: a flat list of published
// URLs plus a timestamped record store. Backends are interchangeable; the
// ledger package owns the semantics, storage only keeps the bytes.
package storage

import (
	"context"
	"strings"
)

// Record is one "this was published" fact as persisted. Timestamp is kept as
// stored text (RFC 3339) so a corrupt value surfaces to the ledger instead of
// failing the whole load.
type Record struct {
	ID               string   `json:"id"`
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Timestamp        string   `json:"timestamp"`
	TitleFingerprint []string `json:"title_fingerprint"`
}

// Store is the persistence contract the ledger depends on. Implementations
// assume a single writer per run.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
	// Prune removes every record for which keep returns false and reports
	// how many were removed.
	Prune(ctx context.Context, keep func(Record) bool) (int, error)
	RewriteAll(ctx context.Context, recs []Record) error

	LoadURLs(ctx context.Context) ([]string, error)
	AppendURL(ctx context.Context, url string) error
	RewriteURLs(ctx context.Context, urls []string) error

	Close() error
}

func joinFingerprint(tokens []string) string {
	return strings.Join(tokens, " ")
}

func splitFingerprint(s string) []string {
	return strings.Fields(s)
}
