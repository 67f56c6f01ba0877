package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/publish"
	"github.com/deusflow/newsposter/internal/retry"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	maxMessageRunes = 4000
	// Telegram caption max ~1024 chars
	maxCaptionRunes = 1000
)

// Client posts to one chat or channel through the bot API.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
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

func New(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		chatID:  chatID,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.Component(c.log, "telegram")
	return c
}

var _ publish.Publisher = (*Client)(nil)

func (c *Client) PublishText(ctx context.Context, text string) publish.Result {
	return c.sendJSON(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     html.EscapeString(truncateRunes(text, maxMessageRunes)),
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	})
}

func (c *Client) PublishImagePost(ctx context.Context, text, imageURL string) publish.Result {
	return c.sendJSON(ctx, "sendPhoto", map[string]interface{}{
		"chat_id":    c.chatID,
		"photo":      imageURL,
		"caption":    html.EscapeString(truncateRunes(text, maxCaptionRunes)),
		"parse_mode": "HTML",
	})
}

// PublishPoll sends the commentary as a message, then the poll itself.
func (c *Client) PublishPoll(ctx context.Context, text, question string, options []string) publish.Result {
	if text != "" {
		if res := c.PublishText(ctx, text); !res.OK {
			return res
		}
	}
	return c.sendJSON(ctx, "sendPoll", map[string]interface{}{
		"chat_id":      c.chatID,
		"question":     question,
		"options":      options,
		"is_anonymous": true,
	})
}

func (c *Client) PublishDocument(ctx context.Context, text, title string, pdf []byte) publish.Result {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"chat_id":    c.chatID,
		"caption":    html.EscapeString(truncateRunes(text, maxCaptionRunes)),
		"parse_mode": "HTML",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return publish.Failed(0, fmt.Errorf("error make form: %w", err))
		}
	}
	part, err := w.CreateFormFile("document", fileName(title))
	if err != nil {
		return publish.Failed(0, fmt.Errorf("error make form: %w", err))
	}
	if _, err := part.Write(pdf); err != nil {
		return publish.Failed(0, fmt.Errorf("error make form: %w", err))
	}
	if err := w.Close(); err != nil {
		return publish.Failed(0, fmt.Errorf("error make form: %w", err))
	}

	return c.send(ctx, "sendDocument", w.FormDataContentType(), body.Bytes())
}

func (c *Client) sendJSON(ctx context.Context, method string, payload map[string]interface{}) publish.Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return publish.Failed(0, fmt.Errorf("error make JSON: %w", err))
	}
	return c.send(ctx, method, "application/json", body)
}

func (c *Client) send(ctx context.Context, method, contentType string, body []byte) publish.Result {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	resp, err := publish.Do(ctx, c.http, c.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		c.log.Error("telegram API error", "method", method, "status", resp.Status, "error", err)
		return publish.ResultFrom(resp, err, "")
	}

	id, err := messageID(resp.Body)
	if err != nil {
		c.log.Error("unexpected telegram response", "method", method, "error", err)
		return publish.Result{Status: resp.Status, Body: string(resp.Body)}
	}
	c.log.Info("sent to Telegram", "method", method, "message_id", id)
	return publish.ResultFrom(resp, nil, id)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func messageID(body []byte) (string, error) {
	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !r.OK {
		return "", fmt.Errorf("telegram says not ok: %s", r.Description)
	}
	return strconv.FormatInt(r.Result.MessageID, 10), nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func fileName(title string) string {
	if title == "" {
		return "carrusel.pdf"
	}
	return title + ".pdf"
}
