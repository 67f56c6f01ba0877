package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	URLsFileName    = "published_urls.txt"
	RecordsFileName = "published_records.json"
)

// FileStore keeps the ledger in two files inside one directory: a flat
// newline-separated URL list and a JSON array of records.
type FileStore struct {
	urlsPath    string
	recordsPath string
	mu          sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed. Missing files read as empty.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileStore{
		urlsPath:    filepath.Join(dir, URLsFileName),
		recordsPath: filepath.Join(dir, RecordsFileName),
	}, nil
}

func (fs *FileStore) Load(ctx context.Context) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readRecords()
}

func (fs *FileStore) Append(ctx context.Context, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readRecords()
	if err != nil {
		return err
	}
	return fs.writeRecords(append(recs, rec))
}

func (fs *FileStore) Prune(ctx context.Context, keep func(Record) bool) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	recs, err := fs.readRecords()
	if err != nil {
		return 0, err
	}

	kept := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(recs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, fs.writeRecords(kept)
}

func (fs *FileStore) RewriteAll(ctx context.Context, recs []Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeRecords(recs)
}

func (fs *FileStore) LoadURLs(ctx context.Context) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.urlsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}

	var urls []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan url list: %w", err)
	}
	return urls, nil
}

func (fs *FileStore) AppendURL(ctx context.Context, url string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.urlsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open url list: %w", err)
	}
	if _, err := f.WriteString(url + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append url: %w", err)
	}
	return f.Close()
}

func (fs *FileStore) RewriteURLs(ctx context.Context, urls []string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var b strings.Builder
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	return writeFileAtomic(fs.urlsPath, []byte(b.String()))
}

func (fs *FileStore) Close() error { return nil }

func (fs *FileStore) readRecords() ([]Record, error) {
	data, err := os.ReadFile(fs.recordsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	return recs, nil
}

func (fs *FileStore) writeRecords(recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return writeFileAtomic(fs.recordsPath, data)
}

// writeFileAtomic replaces path through a temp file in the same directory so
// an interrupted run never leaves a half-written ledger behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
