package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the ledger in process memory. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	urls    []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRecords(m.records), nil
}

func (m *MemoryStore) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, cloneRecord(rec))
	return nil
}

func (m *MemoryStore) Prune(ctx context.Context, keep func(Record) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	removed := 0
	for _, rec := range m.records {
		if keep(rec) {
			kept = append(kept, rec)
		} else {
			removed++
		}
	}
	m.records = kept
	return removed, nil
}

func (m *MemoryStore) RewriteAll(ctx context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cloneRecords(recs)
	return nil
}

func (m *MemoryStore) LoadURLs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.urls...), nil
}

func (m *MemoryStore) AppendURL(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	return nil
}

func (m *MemoryStore) RewriteURLs(ctx context.Context, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append([]string(nil), urls...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneRecord(r Record) Record {
	r.TitleFingerprint = append([]string(nil), r.TitleFingerprint...)
	return r
}

func cloneRecords(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out
}
