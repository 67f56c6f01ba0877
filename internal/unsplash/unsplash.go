// Package unsplash finds a stock photo for an item when neither the feed
// nor the article page provides one.
package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
)

const DefaultBaseURL = "https://api.unsplash.com"

type Client struct {
	accessKey string
	baseURL   string
	http      *http.Client
	log       *slog.Logger
}

func New(accessKey, baseURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		accessKey: accessKey,
		baseURL:   baseURL,
		http:      httpClient,
		log:       logger.Component(log, "unsplash"),
	}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// FindImage searches by the item title and returns the first result's
// regular-size URL, or "" when there is no key, no match or an error.
func (c *Client) FindImage(ctx context.Context, item news.Item) string {
	if c.accessKey == "" {
		c.log.Debug("UNSPLASH_ACCESS_KEY not set, skipping image search")
		return ""
	}
	img, err := c.search(ctx, item.Title)
	if err != nil {
		c.log.Warn("image search failed", "title", item.Title, "error", err)
		return ""
	}
	return img
}

func (c *Client) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var r searchResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(r.Results) == 0 {
		return "", nil
	}
	return r.Results[0].URLs.Regular, nil
}
