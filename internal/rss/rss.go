package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mrz1836/go-sanitize"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
)

// FeedsConfig is YAML config structure
// feeds:
//   - url: https://...
//     source: El Financiero
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]Feed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds %s: %w", path, err)
	}

	var cfg FeedsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse feeds %s: %w", path, err)
	}

	feeds := cfg.Feeds[:0]
	for _, f := range cfg.Feeds {
		if f.URL = strings.TrimSpace(f.URL); f.URL != "" {
			feeds = append(feeds, f)
		}
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds in %s", path)
	}
	return feeds, nil
}

// Fetcher reads a fixed list of feeds and keeps the entries that mention the
// query topic.
type Fetcher struct {
	feeds  []Feed
	parser *gofeed.Parser
	now    func() time.Time
	log    *slog.Logger
}

func NewFetcher(feeds []Feed, timeout time.Duration, log *slog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "newsposter/1.0"
	f := &Fetcher{
		feeds:  feeds,
		parser: parser,
		now:    time.Now,
		log:    logger.Component(log, "rss"),
	}
	if timeout > 0 {
		parser.Client = &http.Client{Timeout: timeout}
	}
	return f
}

// Fetch downloads and parses all feeds. Feeds that fail are logged and
// skipped; the result is never an error.
func (f *Fetcher) Fetch(ctx context.Context, q news.Query) []news.Item {
	words := topicWords(q.Text)
	var cutoff time.Time
	if q.Since > 0 {
		cutoff = f.now().Add(-q.Since)
	}

	var items []news.Item
	successCount := 0
	for _, feed := range f.feeds {
		parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			f.log.Warn("error parsing RSS", "url", feed.URL, "error", err)
			continue
		}
		successCount++

		for _, entry := range parsed.Items {
			item := toItem(entry, feed, parsed.Title, q.Text)
			if !cutoff.IsZero() && !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
				continue
			}
			if !mentions(item, words) {
				continue
			}
			items = append(items, item)
			if q.PageSize > 0 && len(items) >= q.PageSize {
				break
			}
		}
		if q.PageSize > 0 && len(items) >= q.PageSize {
			break
		}
	}

	f.log.Info("processed RSS feeds", "ok", successCount, "total", len(f.feeds), "matched", len(items), "query", q.Text)
	return items
}

func toItem(entry *gofeed.Item, feed Feed, feedTitle, topic string) news.Item {
	item := news.Item{
		URL:         strings.TrimSpace(entry.Link),
		Title:       clean(entry.Title),
		Description: clean(entry.Description),
		Source:      feed.Source,
		Topic:       topic,
	}
	if item.Source == "" {
		item.Source = feedTitle
	}
	if entry.PublishedParsed != nil {
		item.PublishedAt = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		item.PublishedAt = *entry.UpdatedParsed
	}
	if entry.Image != nil {
		item.ImageURL = entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if item.ImageURL == "" && strings.HasPrefix(enc.Type, "image/") {
			item.ImageURL = enc.URL
		}
	}
	return item
}

func clean(s string) string {
	return strings.Join(strings.Fields(sanitize.HTML(s)), " ")
}

// topicWords splits a topic into the words worth matching on.
func topicWords(topic string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len([]rune(w)) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

func mentions(item news.Item, words []string) bool {
	if len(words) == 0 {
		return true
	}
	text := item.Text()
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
