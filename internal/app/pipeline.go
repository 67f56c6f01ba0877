package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsposter/internal/allocate"
	"github.com/deusflow/newsposter/internal/dedup"
	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/metrics"
	"github.com/deusflow/newsposter/internal/news"
	"github.com/deusflow/newsposter/internal/publish"
	"github.com/deusflow/newsposter/internal/rewrite"
)

type TopicSelector interface {
	Select(now time.Time) string
}

type Fetcher interface {
	Fetch(ctx context.Context, q news.Query) []news.Item
}

type Ledger interface {
	IsPublished(ctx context.Context, url, title string) (bool, error)
	MarkPublished(ctx context.Context, url, title string) error
}

type Rewriter interface {
	Rewrite(ctx context.Context, item news.Item, style string) string
	Poll(ctx context.Context, item news.Item) rewrite.Poll
	Slides(ctx context.Context, item news.Item) ([]rewrite.Slide, error)
}

type ImageFinder interface {
	FindImage(ctx context.Context, item news.Item) string
}

type Enricher interface {
	Enrich(ctx context.Context, item news.Item) news.Item
}

type DocumentBuilder interface {
	Build(title string, slides []rewrite.Slide) ([]byte, error)
}

// PipelineDeps holds the collaborators of a run. Fallback, Enricher and
// Images are optional.
type PipelineDeps struct {
	Topics    TopicSelector
	Fetcher   Fetcher
	Fallback  Fetcher
	Ledger    Ledger
	Scorer    *news.Scorer
	Allocator *allocate.Allocator
	Rewriter  Rewriter
	Publisher publish.Publisher
	Carousel  DocumentBuilder
	Enricher  Enricher
	Images    []ImageFinder
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

type Settings struct {
	TargetCount int
	PageSize    int // 0 = 3 * TargetCount
	Language    string
	Domains     []string
	Since       time.Duration
	StylePrompt string
	ItemTimeout time.Duration
	// SkipLedgerWrites leaves the ledger untouched, for dry runs.
	SkipLedgerWrites bool
}

type Pipeline struct {
	deps     PipelineDeps
	settings Settings
	dedup    *dedup.Deduplicator
	log      *slog.Logger
}

func NewPipeline(deps PipelineDeps, settings Settings) (*Pipeline, error) {
	switch {
	case deps.Topics == nil:
		return nil, fmt.Errorf("pipeline needs a topic selector")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("pipeline needs a fetcher")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("pipeline needs a ledger")
	case deps.Scorer == nil:
		return nil, fmt.Errorf("pipeline needs a scorer")
	case deps.Allocator == nil:
		return nil, fmt.Errorf("pipeline needs an allocator")
	case deps.Rewriter == nil:
		return nil, fmt.Errorf("pipeline needs a rewriter")
	case deps.Publisher == nil:
		return nil, fmt.Errorf("pipeline needs a publisher")
	}
	if settings.TargetCount <= 0 {
		return nil, fmt.Errorf("target count must be positive")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	log := logger.Component(deps.Log, "pipeline")
	return &Pipeline{
		deps:     deps,
		settings: settings,
		dedup:    dedup.New(deps.Ledger, deps.Log),
		log:      log,
	}, nil
}

// Run performs one publication cycle. It only returns an error when the
// context ends; collaborator failures are logged and reported per item.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	defer func() { p.deps.Metrics.RecordProcessingTime(time.Since(start)) }()

	failuresBefore := p.rewriteFailures()

	report := Report{StartedAt: now, Topic: p.deps.Topics.Select(now)}
	p.log.Info("run started", "topic", report.Topic)

	query := news.Query{
		Text:     report.Topic,
		Language: p.settings.Language,
		PageSize: p.pageSize(),
		Domains:  p.settings.Domains,
		Since:    p.settings.Since,
	}
	items := p.deps.Fetcher.Fetch(ctx, query)
	if len(items) == 0 && p.deps.Fallback != nil {
		p.log.Info("no articles from primary source, trying fallback", "topic", report.Topic)
		items = p.deps.Fallback.Fetch(ctx, query)
	}
	report.Fetched = len(items)
	p.deps.Metrics.AddFetched(len(items))

	if len(items) == 0 {
		p.log.Info("nothing fetched, ending run", "topic", report.Topic)
		report.EarlyExit = true
		return p.finish(report, now, failuresBefore, nil)
	}

	kept, stats := p.dedup.Filter(ctx, items)
	report.Dedup = stats
	p.deps.Metrics.AddFiltered(stats.Ineligible, stats.Duplicates)
	if len(kept) == 0 {
		p.log.Info("all candidates already published, ending run", "fetched", len(items))
		report.EarlyExit = true
		return p.finish(report, now, failuresBefore, nil)
	}

	ranked := p.deps.Scorer.Rank(kept)
	if len(ranked) > p.settings.TargetCount {
		ranked = ranked[:p.settings.TargetCount]
	}
	plan := p.deps.Allocator.Allocate(ranked)
	report.Selected = len(plan)

	for _, a := range plan {
		if err := ctx.Err(); err != nil {
			return p.finish(report, now, failuresBefore, err)
		}
		report.Items = append(report.Items, p.processItem(ctx, a))
	}

	return p.finish(report, now, failuresBefore, nil)
}

func (p *Pipeline) finish(report Report, now time.Time, failuresBefore int, err error) (Report, error) {
	p.deps.Metrics.AddRewriteFailures(p.rewriteFailures() - failuresBefore)
	if err != nil {
		p.deps.Metrics.SetError(err.Error(), now)
	} else {
		p.deps.Metrics.SetLastRun(now)
	}
	p.log.Info("run finished",
		"topic", report.Topic,
		"fetched", report.Fetched,
		"duplicates", report.Dedup.Duplicates,
		"selected", report.Selected,
		"published", report.Published(),
		"early_exit", report.EarlyExit,
	)
	return report, err
}

func (p *Pipeline) pageSize() int {
	if p.settings.PageSize > 0 {
		return p.settings.PageSize
	}
	return p.settings.TargetCount * 3
}

func (p *Pipeline) rewriteFailures() int {
	if f, ok := p.deps.Rewriter.(interface{ Failures() int }); ok {
		return f.Failures()
	}
	return 0
}

// processItem publishes one planned item under the per-item timeout.
func (p *Pipeline) processItem(ctx context.Context, a allocate.Assignment) ItemReport {
	if p.settings.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.ItemTimeout)
		defer cancel()
	}

	item := a.Item
	if p.deps.Enricher != nil {
		item = p.deps.Enricher.Enrich(ctx, item)
	}

	rep := ItemReport{URL: item.URL, Title: item.Title, Planned: a.Format, Rank: a.Rank}
	log := p.log.With("url", item.URL, "format", a.Format)

	format, res := p.publish(ctx, item, a.Format, log)
	rep.Format = format
	rep.Result = res

	if !res.OK {
		rep.State = StateSkipped
		p.deps.Metrics.IncrementPublishFailures()
		log.Error("publish failed", "status", res.Status, "body", res.Body)
		return rep
	}

	rep.State = StatePublished
	p.deps.Metrics.IncrementPublished(string(format))
	log.Info("published", "id", res.ID, "used_format", format)

	if p.settings.SkipLedgerWrites {
		return rep
	}
	// The post is live; record it even if the item deadline has passed.
	if err := p.deps.Ledger.MarkPublished(context.WithoutCancel(ctx), item.URL, item.Title); err != nil {
		rep.LedgerErr = err.Error()
		log.Error("ledger update failed", "error", err)
	}
	return rep
}

func (p *Pipeline) publish(ctx context.Context, item news.Item, format allocate.Format, log *slog.Logger) (allocate.Format, publish.Result) {
	switch format {
	case allocate.FormatCarousel:
		res, err := p.publishCarousel(ctx, item)
		if err == nil {
			return format, res
		}
		log.Warn("carousel failed, falling back", "error", err)
		p.deps.Metrics.IncrementFallbacks()
		if img := p.findImage(ctx, item); img != "" {
			return allocate.FormatImage, p.deps.Publisher.PublishImagePost(ctx, p.postText(ctx, item), img)
		}
		return allocate.FormatPlain, p.deps.Publisher.PublishText(ctx, p.postText(ctx, item))

	case allocate.FormatPoll:
		poll := p.deps.Rewriter.Poll(ctx, item)
		return format, p.deps.Publisher.PublishPoll(ctx, p.postText(ctx, item), poll.Question, poll.Options)

	case allocate.FormatImage:
		if img := p.findImage(ctx, item); img != "" {
			return format, p.deps.Publisher.PublishImagePost(ctx, p.postText(ctx, item), img)
		}
		log.Info("no image available, posting as plain text")
		p.deps.Metrics.IncrementFallbacks()
		return allocate.FormatPlain, p.deps.Publisher.PublishText(ctx, p.postText(ctx, item))

	default:
		return allocate.FormatPlain, p.deps.Publisher.PublishText(ctx, p.postText(ctx, item))
	}
}

// publishCarousel returns an error for any failure that should make the
// item fall back to a simpler format.
func (p *Pipeline) publishCarousel(ctx context.Context, item news.Item) (publish.Result, error) {
	if p.deps.Carousel == nil {
		return publish.Result{}, fmt.Errorf("no carousel builder configured")
	}
	slides, err := p.deps.Rewriter.Slides(ctx, item)
	if err != nil {
		return publish.Result{}, err
	}
	pdf, err := p.deps.Carousel.Build(item.Title, slides)
	if err != nil {
		return publish.Result{}, err
	}
	res := p.deps.Publisher.PublishDocument(ctx, p.postText(ctx, item), item.Title, pdf)
	if !res.OK {
		return res, fmt.Errorf("document upload failed: %s", res)
	}
	return res, nil
}

func (p *Pipeline) findImage(ctx context.Context, item news.Item) string {
	if item.ImageURL != "" {
		return item.ImageURL
	}
	for _, f := range p.deps.Images {
		if img := f.FindImage(ctx, item); img != "" {
			return img
		}
	}
	return ""
}

func (p *Pipeline) postText(ctx context.Context, item news.Item) string {
	return FormatPost(item.Title, p.deps.Rewriter.Rewrite(ctx, item, p.settings.StylePrompt), item.URL)
}

// FormatPost lays out a post: title, blank line, body, blank line, source.
func FormatPost(title, body, url string) string {
	return fmt.Sprintf("%s\n\n%s\n\nFuente: %s", title, body, url)
}
