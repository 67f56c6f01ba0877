// Package rewrite turns news items into post copy, poll questions and
// carousel slides using a pluggable text generation backend. Every entry
// point degrades to a fixed fallback instead of failing the run, except
// Slides, whose caller has its own fallback.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/deusflow/newsposter/internal/cache"
	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/news"
	"github.com/deusflow/newsposter/internal/ratelimit"
)

const (
	// FallbackSummary is posted when generation fails or returns nothing.
	FallbackSummary = "Error generating summary 😢."

	// NotEnoughContent is used when an item is too thin to summarize and has
	// no description of its own.
	NotEnoughContent = "Not enough content to generate a summary."

	// MinContentChars is the shortest title+description worth a model call.
	MinContentChars = 50

	MaxPollOptionRunes = 30
	PollOptionCount    = 4
	MinSlides          = 3
	MaxSlides          = 6

	maxPromptChars = 6000
)

var ErrEmptyOutput = errors.New("empty generation output")

// Generator is a text model backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Poll struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// DefaultPoll is used whenever a poll cannot be generated.
func DefaultPoll() Poll {
	return Poll{
		Question: "¿Qué opinas de esta noticia?",
		Options:  []string{"Interesa mucho", "Me preocupa", "Exagerado", "Más contexto"},
	}
}

type Slide struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Rewriter struct {
	gen      Generator
	limiter  *ratelimit.GenerationLimiter
	memo     *cache.Cache
	log      *slog.Logger
	failures atomic.Int64
}

type Option func(*Rewriter)

func WithLimiter(l *ratelimit.GenerationLimiter) Option {
	return func(r *Rewriter) { r.limiter = l }
}

func WithCache(c *cache.Cache) Option {
	return func(r *Rewriter) { r.memo = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) { r.log = l }
}

func New(gen Generator, opts ...Option) *Rewriter {
	r := &Rewriter{gen: gen}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.Component(r.log, "rewrite").With("backend", gen.Name())
	if r.memo == nil {
		r.memo = cache.New()
	}
	return r
}

// Failures counts generations that ended in a fallback.
func (r *Rewriter) Failures() int {
	return int(r.failures.Load())
}

// Rewrite summarizes the item in the given style. It never fails: thin items
// return their description untouched, and any generation problem yields
// FallbackSummary.
func (r *Rewriter) Rewrite(ctx context.Context, item news.Item, style string) string {
	content := strings.TrimSpace(item.Title + "\n" + item.Description)
	if utf8.RuneCountInString(content) < MinContentChars {
		if d := strings.TrimSpace(item.Description); d != "" {
			return d
		}
		return NotEnoughContent
	}

	prompt := style + "\n\nResume la siguiente noticia conservando su significado:\n\n" + prepareContent(content)
	out, err := r.generate(ctx, "rewrite", item, systemWriter, prompt)
	if err != nil {
		r.fail("rewrite", item, err)
		return FallbackSummary
	}
	return out
}

// Poll asks for a question with four short options about the item. Output
// that cannot be parsed or validated yields DefaultPoll.
func (r *Rewriter) Poll(ctx context.Context, item news.Item) Poll {
	prompt := fmt.Sprintf(pollPrompt, item.Title, prepareContent(item.Description))
	out, err := r.generate(ctx, "poll", item, systemWriter, prompt)
	if err != nil {
		r.fail("poll", item, err)
		return DefaultPoll()
	}

	poll, err := parsePoll(out)
	if err != nil {
		r.fail("poll", item, err)
		return DefaultPoll()
	}
	return poll
}

// Slides asks for carousel slides. Errors are returned so the caller can
// publish the item in another format.
func (r *Rewriter) Slides(ctx context.Context, item news.Item) ([]Slide, error) {
	prompt := fmt.Sprintf(slidesPrompt, MinSlides, MaxSlides, item.Title, prepareContent(item.Description))
	out, err := r.generate(ctx, "slides", item, systemWriter, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate slides: %w", err)
	}
	slides, err := parseSlides(out)
	if err != nil {
		return nil, fmt.Errorf("parse slides: %w", err)
	}
	return slides, nil
}

func (r *Rewriter) generate(ctx context.Context, kind string, item news.Item, system, prompt string) (string, error) {
	key := cache.GenerateKey(kind, r.gen.Name(), item.URL, item.Title, prompt)
	if v, ok := r.memo.Get(key); ok {
		if r.limiter != nil {
			r.limiter.RecordCacheHit()
		}
		r.log.Debug("generation cache hit", "kind", kind, "url", item.URL)
		return v.(string), nil
	}

	if r.limiter != nil {
		if err := r.limiter.Acquire(ctx); err != nil {
			return "", err
		}
	}

	raw, err := r.gen.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", r.gen.Name(), err)
	}

	out := raw
	if kind == "rewrite" {
		out = SanitizeText(raw)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyOutput
	}

	r.memo.Set(key, out, 0)
	return out, nil
}

func (r *Rewriter) fail(kind string, item news.Item, err error) {
	r.failures.Add(1)
	r.log.Warn("generation failed, using fallback", "kind", kind, "url", item.URL, "error", err)
}

func parsePoll(out string) (Poll, error) {
	raw, ok := extractJSON(out, '{', '}')
	if !ok {
		return Poll{}, fmt.Errorf("no JSON object in poll output")
	}

	var p Poll
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Poll{}, fmt.Errorf("decode poll: %w", err)
	}

	p.Question = strings.TrimSpace(SanitizeText(p.Question))
	if p.Question == "" {
		return Poll{}, fmt.Errorf("poll without question")
	}

	options := make([]string, 0, PollOptionCount)
	for _, o := range p.Options {
		o = clampOption(SanitizeText(o))
		if o == "" {
			continue
		}
		options = append(options, o)
		if len(options) == PollOptionCount {
			break
		}
	}
	if len(options) < PollOptionCount {
		return Poll{}, fmt.Errorf("poll has %d usable options, want %d", len(options), PollOptionCount)
	}
	p.Options = options
	return p, nil
}

// clampOption keeps an option within MaxPollOptionRunes. Wide runes are
// measured by display width first, then by count.
func clampOption(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxPollOptionRunes {
		return s
	}
	s = runewidth.Truncate(s, MaxPollOptionRunes, "…")
	if r := []rune(s); len(r) > MaxPollOptionRunes {
		s = string(r[:MaxPollOptionRunes])
	}
	return s
}

func parseSlides(out string) ([]Slide, error) {
	raw, ok := extractJSON(out, '[', ']')
	if !ok {
		return nil, fmt.Errorf("no JSON array in slides output")
	}

	var slides []Slide
	if err := json.Unmarshal([]byte(raw), &slides); err != nil {
		return nil, fmt.Errorf("decode slides: %w", err)
	}

	clean := slides[:0]
	for _, s := range slides {
		s.Title = SanitizeText(s.Title)
		s.Body = SanitizeText(s.Body)
		if s.Title == "" && s.Body == "" {
			continue
		}
		clean = append(clean, s)
	}
	if len(clean) < MinSlides {
		return nil, fmt.Errorf("got %d slides, want at least %d", len(clean), MinSlides)
	}
	if len(clean) > MaxSlides {
		clean = clean[:MaxSlides]
	}
	return clean, nil
}

// prepareContent collapses whitespace and bounds prompt size, cutting at a
// sentence end when one is reasonably close.
func prepareContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxPromptChars {
		return content
	}
	trimmed := string([]rune(content)[:maxPromptChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n[TRUNCATED]"
}
