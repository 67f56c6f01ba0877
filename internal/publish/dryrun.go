package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/deusflow/newsposter/internal/logger"
)

const previewWidth = 120

// Post is what a DryRun publisher saw.
type Post struct {
	Kind     string // text | image | poll | document
	Text     string
	ImageURL string
	Question string
	Options  []string
	Title    string
	PDFSize  int
}

// DryRun logs posts instead of sending them and keeps them for inspection.
type DryRun struct {
	mu    sync.Mutex
	posts []Post
	log   *slog.Logger
}

func NewDryRun(log *slog.Logger) *DryRun {
	return &DryRun{log: logger.Component(log, "dry-run")}
}

func (d *DryRun) Posts() []Post {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Post(nil), d.posts...)
}

func (d *DryRun) PublishText(ctx context.Context, text string) Result {
	return d.record(Post{Kind: "text", Text: text})
}

func (d *DryRun) PublishImagePost(ctx context.Context, text, imageURL string) Result {
	return d.record(Post{Kind: "image", Text: text, ImageURL: imageURL})
}

func (d *DryRun) PublishPoll(ctx context.Context, text, question string, options []string) Result {
	return d.record(Post{Kind: "poll", Text: text, Question: question, Options: append([]string(nil), options...)})
}

func (d *DryRun) PublishDocument(ctx context.Context, text, title string, pdf []byte) Result {
	return d.record(Post{Kind: "document", Text: text, Title: title, PDFSize: len(pdf)})
}

func (d *DryRun) record(p Post) Result {
	d.mu.Lock()
	d.posts = append(d.posts, p)
	id := fmt.Sprintf("dry-run-%d", len(d.posts))
	d.mu.Unlock()

	preview := runewidth.Truncate(strings.Join(strings.Fields(p.Text), " "), previewWidth, "…")
	d.log.Info("would publish", "kind", p.Kind, "id", id, "preview", preview,
		"image", p.ImageURL, "question", p.Question, "pdf_bytes", p.PDFSize)
	return Result{OK: true, ID: id}
}
