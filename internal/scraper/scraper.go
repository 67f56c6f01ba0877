package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
)

// MinDescriptionChars is the description length below which an item is
// worth enriching from its page.
const MinDescriptionChars = 50

// Page is what the scraper could learn from an article page.
type Page struct {
	Title       string
	Description string
	ImageURL    string
	Content     string
}

type Scraper struct {
	http *http.Client
	log  *slog.Logger
}

func New(httpClient *http.Client, log *slog.Logger) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Scraper{http: httpClient, log: logger.Component(log, "scraper")}
}

// Fetch loads and parses the article page.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsposter/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	page := &Page{
		Title:       firstNonEmpty(meta(doc, "og:title"), extractTitle(doc)),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "description")),
		ImageURL:    resolve(pageURL, firstNonEmpty(meta(doc, "og:image"), meta(doc, "twitter:image"))),
		Content:     cleanContent(extractGenericContent(doc)),
	}
	return page, nil
}

// Enrich fills a thin description and a missing image from the article page.
// Failures leave the item as it was.
func (s *Scraper) Enrich(ctx context.Context, item news.Item) news.Item {
	needText := utf8.RuneCountInString(strings.TrimSpace(item.Description)) < MinDescriptionChars
	if !needText && item.ImageURL != "" {
		return item
	}

	page, err := s.Fetch(ctx, item.URL)
	if err != nil {
		s.log.Warn("can't enrich item", "url", item.URL, "error", err)
		return item
	}

	if needText {
		if d := firstNonEmpty(page.Description, news.FallbackSummary(page.Content)); utf8.RuneCountInString(d) > utf8.RuneCountInString(item.Description) {
			item.Description = d
		}
	}
	if item.ImageURL == "" {
		item.ImageURL = page.ImageURL
	}
	return item
}

// FindImage returns the page's preview image, or "".
func (s *Scraper) FindImage(ctx context.Context, item news.Item) string {
	if item.ImageURL != "" {
		return item.ImageURL
	}
	page, err := s.Fetch(ctx, item.URL)
	if err != nil {
		s.log.Debug("no page image", "url", item.URL, "error", err)
		return ""
	}
	return page.ImageURL
}

func meta(doc *goquery.Document, name string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, name, name)
	content, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// extractGenericContent is universal parser for any site
func extractGenericContent(doc *goquery.Document) string {
	var best []string

	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > len(best) {
			best = paragraphs
		}
		if len(best) >= 3 { // If we find 3 paragraphs, it's enough
			break
		}
	}

	return strings.Join(best, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
		".entry-title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "suscríbete", "suscribete", "newsletter", "publicidad",
	"lee también", "te puede interesar", "inicia sesión", "aviso de privacidad",
	"todos los derechos reservados",
}

// cleanContent drops boilerplate paragraphs and keeps the text under a size
// that still fits a prompt comfortably.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var kept []string
	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.Join(strings.Fields(paragraph), " ")
		if len(paragraph) <= 30 {
			continue
		}
		lower := strings.ToLower(paragraph)
		isJunk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				isJunk = true
				break
			}
		}
		if !isJunk {
			kept = append(kept, paragraph)
		}
	}

	// Limit length, keep full paragraphs
	var selected []string
	total := 0
	for _, paragraph := range kept {
		if total+len(paragraph) > 1600 && len(selected) > 0 {
			break
		}
		selected = append(selected, paragraph)
		total += len(paragraph) + 2
	}

	return strings.Join(selected, "\n\n")
}
