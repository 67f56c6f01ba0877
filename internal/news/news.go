package news

import (
	"strings"
	"time"
)

// Item is one fetched article under consideration for publication.
type Item struct {
	URL         string
	Title       string
	Description string
	PublishedAt time.Time // zero when the source did not say

	Source   string // outlet name
	ImageURL string // optional, from the feed or scraped later
	Topic    string // query that produced the item
}

// Eligible reports whether the item can be deduplicated and cited at all.
func (i Item) Eligible() bool {
	return strings.TrimSpace(i.URL) != ""
}

// Text is the lower-cased title and description the scorer matches against.
func (i Item) Text() string {
	return strings.ToLower(i.Title + " " + i.Description)
}

// FallbackSummary returns the first couple of meaningful sentences of the
// description, or a trimmed prefix when there are none.
func FallbackSummary(content string) string {
	c := strings.TrimSpace(content)
	if c == "" {
		return ""
	}
	sentences := strings.Split(c, ".")
	var picked []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}
	if len(picked) == 0 {
		runes := []rune(c)
		if len(runes) > 160 {
			return string(runes[:160]) + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}

// Query is what a fetcher is asked for.
type Query struct {
	Text     string
	Language string // en | es
	PageSize int
	Domains  []string
	Since    time.Duration // only items newer than now - Since; 0 = no bound
}
