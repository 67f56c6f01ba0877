// Package linkedin publishes member posts through the LinkedIn REST API:
// text posts, single-image posts, polls and PDF documents (carousels).
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/publish"
	"github.com/deusflow/newsposter/internal/retry"
)

const (
	DefaultBaseURL = "https://api.linkedin.com"
	APIVersion     = "202405"

	maxCommentaryRunes = 3000
	maxImageBytes      = 10 << 20
)

type Client struct {
	token    string
	author   string // urn:li:person:<id>
	baseURL  string
	http     *http.Client
	retry    retry.RetryConfig
	pollTime string
	log      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRetry(cfg retry.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(token, personID string, opts ...Option) *Client {
	c := &Client{
		token:    token,
		author:   "urn:li:person:" + personID,
		baseURL:  DefaultBaseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		pollTime: "THREE_DAYS",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.Component(c.log, "linkedin")
	return c
}

var _ publish.Publisher = (*Client)(nil)

type distribution struct {
	FeedDistribution               string   `json:"feedDistribution"`
	TargetEntities                 []string `json:"targetEntities"`
	ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
}

type post struct {
	Author                    string       `json:"author"`
	Commentary                string       `json:"commentary"`
	Visibility                string       `json:"visibility"`
	Distribution              distribution `json:"distribution"`
	Content                   *content     `json:"content,omitempty"`
	LifecycleState            string       `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool         `json:"isReshareDisabledByAuthor"`
}

type content struct {
	Media *media `json:"media,omitempty"`
	Poll  *poll  `json:"poll,omitempty"`
}

type media struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	AltText string `json:"altText,omitempty"`
}

type poll struct {
	Question string       `json:"question"`
	Options  []pollOption `json:"options"`
	Settings pollSettings `json:"settings"`
}

type pollOption struct {
	Text string `json:"text"`
}

type pollSettings struct {
	Duration string `json:"duration"`
}

func (c *Client) newPost(text string, cnt *content) post {
	return post{
		Author:     c.author,
		Commentary: escapeCommentary(truncate(text, maxCommentaryRunes)),
		Visibility: "PUBLIC",
		Distribution: distribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []string{},
			ThirdPartyDistributionChannels: []string{},
		},
		Content:        cnt,
		LifecycleState: "PUBLISHED",
	}
}

func (c *Client) PublishText(ctx context.Context, text string) publish.Result {
	return c.createPost(ctx, c.newPost(text, nil))
}

// PublishImagePost downloads the image, uploads it to LinkedIn and attaches
// it to the post.
func (c *Client) PublishImagePost(ctx context.Context, text, imageURL string) publish.Result {
	img, ctype, err := c.download(ctx, imageURL)
	if err != nil {
		c.log.Warn("image download failed", "url", imageURL, "error", err)
		return publish.Failed(0, err)
	}

	urn, res := c.upload(ctx, "images", img, ctype)
	if !res.OK {
		return res
	}
	return c.createPost(ctx, c.newPost(text, &content{Media: &media{ID: urn, AltText: altText(text)}}))
}

func (c *Client) PublishPoll(ctx context.Context, text, question string, options []string) publish.Result {
	p := &poll{Question: question, Settings: pollSettings{Duration: c.pollTime}}
	for _, o := range options {
		p.Options = append(p.Options, pollOption{Text: o})
	}
	return c.createPost(ctx, c.newPost(text, &content{Poll: p}))
}

// PublishDocument uploads a PDF, which LinkedIn renders as a swipeable
// carousel.
func (c *Client) PublishDocument(ctx context.Context, text, title string, pdf []byte) publish.Result {
	urn, res := c.upload(ctx, "documents", pdf, "application/pdf")
	if !res.OK {
		return res
	}
	return c.createPost(ctx, c.newPost(text, &content{Media: &media{ID: urn, Title: title}}))
}

func (c *Client) createPost(ctx context.Context, p post) publish.Result {
	body, err := json.Marshal(p)
	if err != nil {
		return publish.Failed(0, fmt.Errorf("encode post: %w", err))
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/posts", "application/json", body, true)
	if err != nil {
		c.log.Error("post rejected", "status", resp.Status, "body", string(resp.Body), "error", err)
		return publish.ResultFrom(resp, err, "")
	}

	id := resp.Header.Get("x-restli-id")
	c.log.Info("post published", "id", id)
	return publish.ResultFrom(resp, nil, id)
}

type initializeUploadResponse struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Image     string `json:"image"`
		Document  string `json:"document"`
	} `json:"value"`
}

// upload registers an asset with initializeUpload and PUTs the bytes to the
// returned URL. kind is "images" or "documents".
func (c *Client) upload(ctx context.Context, kind string, data []byte, contentType string) (string, publish.Result) {
	req := map[string]interface{}{
		"initializeUploadRequest": map[string]string{"owner": c.author},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", publish.Failed(0, fmt.Errorf("encode upload request: %w", err))
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/"+kind+"?action=initializeUpload", "application/json", body, true)
	if err != nil {
		c.log.Error("initializeUpload failed", "kind", kind, "status", resp.Status, "error", err)
		return "", publish.ResultFrom(resp, err, "")
	}

	var init initializeUploadResponse
	if err := json.Unmarshal(resp.Body, &init); err != nil {
		return "", publish.Result{Status: resp.Status, Body: fmt.Sprintf("decode initializeUpload: %v", err)}
	}
	urn := init.Value.Image
	if kind == "documents" {
		urn = init.Value.Document
	}
	if init.Value.UploadURL == "" || urn == "" {
		return "", publish.Result{Status: resp.Status, Body: "initializeUpload returned no upload target: " + string(resp.Body)}
	}

	put, err := c.do(ctx, http.MethodPut, init.Value.UploadURL, contentType, data, false)
	if err != nil {
		c.log.Error("asset upload failed", "kind", kind, "status", put.Status, "error", err)
		return "", publish.ResultFrom(put, err, "")
	}
	c.log.Debug("asset uploaded", "urn", urn, "bytes", len(data))
	return urn, publish.Result{OK: true, Status: put.Status, ID: urn}
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte, restli bool) (publish.Response, error) {
	return publish.Do(ctx, c.http, c.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", contentType)
		if restli {
			req.Header.Set("LinkedIn-Version", APIVersion)
			req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
		}
		return req, nil
	})
}

func (c *Client) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return data, ctype, nil
}

// LinkedIn's commentary format reserves these characters; hashtags are left
// alone so they still link.
var commentaryEscaper = strings.NewReplacer(
	`\`, `\\`, `|`, `\|`, `{`, `\{`, `}`, `\}`, `@`, `\@`,
	`[`, `\[`, `]`, `\]`, `(`, `\(`, `)`, `\)`, `<`, `\<`, `>`, `\>`,
	`*`, `\*`, `_`, `\_`, `~`, `\~`,
)

func escapeCommentary(s string) string {
	return commentaryEscaper.Replace(s)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func altText(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return truncate(line, 120)
}
