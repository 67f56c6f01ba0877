package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "ledger"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pg, err := NewPostgresStore(context.Background(), dsn)
		if err != nil {
			t.Fatalf("NewPostgresStore: %v", err)
		}
		if err := pg.RewriteAll(context.Background(), nil); err != nil {
			t.Fatalf("reset postgres records: %v", err)
		}
		if err := pg.RewriteURLs(context.Background(), nil); err != nil {
			t.Fatalf("reset postgres urls: %v", err)
		}
		stores["postgres"] = pg
	}

	for _, s := range stores {
		s := s
		t.Cleanup(func() { s.Close() })
	}
	return stores
}

func TestStore_RecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			recs, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load on empty store: %v", err)
			}
			if len(recs) != 0 {
				t.Fatalf("expected empty store, got %d records", len(recs))
			}

			in := []Record{
				{ID: "1", URL: "https://a.example/1", Title: "Uno", Timestamp: "2026-10-10T10:00:00Z", TitleFingerprint: []string{"banxico", "sube"}},
				{ID: "2", URL: "https://a.example/2", Title: "Dos", Timestamp: "not-a-time", TitleFingerprint: nil},
			}
			for _, r := range in {
				if err := s.Append(ctx, r); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			recs, err = s.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("got %d records, want 2", len(recs))
			}
			if recs[0].URL != in[0].URL || recs[0].Timestamp != in[0].Timestamp {
				t.Errorf("first record = %+v", recs[0])
			}
			if len(recs[0].TitleFingerprint) != 2 || recs[0].TitleFingerprint[1] != "sube" {
				t.Errorf("fingerprint = %v", recs[0].TitleFingerprint)
			}
			if recs[1].Timestamp != "not-a-time" {
				t.Errorf("corrupt timestamp should be preserved verbatim, got %q", recs[1].Timestamp)
			}
		})
	}
}

func TestStore_PruneAndRewrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b", "c"} {
				if err := s.Append(ctx, Record{ID: id, URL: "https://x.example/" + id, Timestamp: "2026-10-10T10:00:00Z"}); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			removed, err := s.Prune(ctx, func(r Record) bool { return r.ID != "b" })
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if removed != 1 {
				t.Errorf("removed = %d, want 1", removed)
			}

			recs, _ := s.Load(ctx)
			if len(recs) != 2 || recs[0].ID != "a" || recs[1].ID != "c" {
				t.Errorf("after prune = %+v", recs)
			}

			if err := s.RewriteAll(ctx, []Record{{ID: "z", URL: "https://x.example/z", Timestamp: "2026-10-11T00:00:00Z"}}); err != nil {
				t.Fatalf("RewriteAll: %v", err)
			}
			recs, _ = s.Load(ctx)
			if len(recs) != 1 || recs[0].ID != "z" {
				t.Errorf("after rewrite = %+v", recs)
			}
		})
	}
}

func TestStore_URLs(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, u := range []string{"https://a", "https://b"} {
				if err := s.AppendURL(ctx, u); err != nil {
					t.Fatalf("AppendURL: %v", err)
				}
			}
			urls, err := s.LoadURLs(ctx)
			if err != nil {
				t.Fatalf("LoadURLs: %v", err)
			}
			if len(urls) != 2 || urls[0] != "https://a" || urls[1] != "https://b" {
				t.Errorf("urls = %v", urls)
			}

			if err := s.RewriteURLs(ctx, []string{"https://b"}); err != nil {
				t.Fatalf("RewriteURLs: %v", err)
			}
			urls, _ = s.LoadURLs(ctx)
			if len(urls) != 1 || urls[0] != "https://b" {
				t.Errorf("after rewrite = %v", urls)
			}
		})
	}
}

func TestFileStore_CorruptRecords(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RecordsFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(context.Background()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestFileStore_PlainURLList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, URLsFileName), []byte("https://a\n\n  https://b  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	urls, err := fs.LoadURLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 || urls[1] != "https://b" {
		t.Errorf("urls = %v", urls)
	}
}
