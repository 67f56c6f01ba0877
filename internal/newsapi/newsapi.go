// Package newsapi fetches candidate articles from the NewsAPI "everything"
// endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/go-sanitize"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
)

const (
	DefaultURL      = "https://newsapi.org/v2/everything"
	defaultPageSize = 15
	maxPageSize     = 100
)

type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	now      func() time.Time
	log      *slog.Logger
}

func New(apiKey, endpoint string, httpClient *http.Client, log *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     httpClient,
		now:      time.Now,
		log:      logger.Component(log, "newsapi"),
	}
}

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch never fails: transport errors and non-2xx answers are logged and
// yield an empty list.
func (c *Client) Fetch(ctx context.Context, q news.Query) []news.Item {
	items, err := c.fetch(ctx, q)
	if err != nil {
		c.log.Error("fetch failed", "query", q.Text, "error", err)
		return nil
	}
	c.log.Info("fetched articles", "query", q.Text, "count", len(items))
	return items
}

func (c *Client) fetch(ctx context.Context, q news.Query) ([]news.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if r.Status != "" && r.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", r.Code, r.Message)
	}

	items := make([]news.Item, 0, len(r.Articles))
	for _, a := range r.Articles {
		items = append(items, toItem(a, q.Text))
	}
	return items, nil
}

func (c *Client) requestURL(q news.Query) string {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("sortBy", "publishedAt")
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if len(q.Domains) > 0 {
		params.Set("domains", strings.Join(q.Domains, ","))
	}
	if q.Since > 0 {
		params.Set("from", c.now().Add(-q.Since).UTC().Format(time.RFC3339))
	}
	return c.endpoint + "?" + params.Encode()
}

func toItem(a article, topic string) news.Item {
	item := news.Item{
		URL:         strings.TrimSpace(a.URL),
		Title:       cleanText(a.Title),
		Description: cleanText(a.Description),
		Source:      a.Source.Name,
		ImageURL:    strings.TrimSpace(a.URLToImage),
		Topic:       topic,
	}
	if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
		item.PublishedAt = t
	}
	return item
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(sanitize.HTML(s)), " ")
}
