package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/deusflow/newsposter/internal/allocate"
	"github.com/deusflow/newsposter/internal/cache"
	"github.com/deusflow/newsposter/internal/carousel"
	"github.com/deusflow/newsposter/internal/config"
	"github.com/deusflow/newsposter/internal/gemini"
	"github.com/deusflow/newsposter/internal/ledger"
	"github.com/deusflow/newsposter/internal/linkedin"
	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/metrics"
	"github.com/deusflow/newsposter/internal/news"
	"github.com/deusflow/newsposter/internal/newsapi"
	"github.com/deusflow/newsposter/internal/openai"
	"github.com/deusflow/newsposter/internal/publish"
	"github.com/deusflow/newsposter/internal/ratelimit"
	"github.com/deusflow/newsposter/internal/retry"
	"github.com/deusflow/newsposter/internal/rewrite"
	"github.com/deusflow/newsposter/internal/rss"
	"github.com/deusflow/newsposter/internal/scraper"
	"github.com/deusflow/newsposter/internal/storage"
	"github.com/deusflow/newsposter/internal/telegram"
	"github.com/deusflow/newsposter/internal/topic"
	"github.com/deusflow/newsposter/internal/unsplash"
)

// generationInterval spaces model calls out within a run.
const generationInterval = 750 * time.Millisecond

// App is a wired pipeline plus the resources it owns.
type App struct {
	Pipeline *Pipeline
	limiter  *ratelimit.GenerationLimiter
	closers  []func() error
}

// Run executes one cycle with a fresh generation budget.
func (a *App) Run(ctx context.Context, now time.Time) (Report, error) {
	report, err := a.Pipeline.Run(ctx, now)
	a.limiter.LogStats()
	return report, err
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires every collaborator from the configuration. Building a new App
// per run gives each run its own generation budget and memo.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{}
	fail := func(err error) (*App, error) {
		_ = a.Close()
		return nil, err
	}

	rng := newRand(cfg.RandomSeed)
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	retryCfg := retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, store.Close)

	led := ledger.New(store,
		ledger.WithRetention(cfg.Retention()),
		ledger.WithThreshold(cfg.SimilarityThreshold),
		ledger.WithLogger(log),
	)

	selector, err := newSelector(cfg, rng)
	if err != nil {
		return fail(err)
	}

	scorer, err := news.NewScorer(cfg.Keywords.Controversy, cfg.Keywords.Interest)
	if err != nil {
		return fail(fmt.Errorf("keywords: %w", err))
	}

	fetcher, fallback, err := newFetchers(cfg, httpClient, log)
	if err != nil {
		return fail(err)
	}

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if closeGen != nil {
		a.closers = append(a.closers, closeGen)
	}
	a.limiter = ratelimit.NewGenerationLimiter(cfg.MaxGenerationRequests, generationInterval, logger.Component(log, "ratelimit"))
	rw := rewrite.New(gen,
		rewrite.WithLimiter(a.limiter),
		rewrite.WithCache(cache.New()),
		rewrite.WithLogger(log),
	)

	var pub publish.Publisher
	switch {
	case cfg.DryRun:
		pub = publish.NewDryRun(log)
	case cfg.Publisher == "telegram":
		pub = telegram.New(cfg.TelegramToken, cfg.TelegramChatID,
			telegram.WithHTTPClient(httpClient), telegram.WithRetry(retryCfg), telegram.WithLogger(log))
	default:
		pub = linkedin.New(cfg.LinkedInToken, cfg.LinkedInPersonID,
			linkedin.WithHTTPClient(httpClient), linkedin.WithRetry(retryCfg), linkedin.WithLogger(log))
	}

	scr := scraper.New(httpClient, log)
	images := []ImageFinder{scr}
	if cfg.UnsplashKey != "" {
		images = append(images, unsplash.New(cfg.UnsplashKey, "", httpClient, log))
	}

	allocator := allocate.New(allocate.Policy{
		Carousel:     cfg.EnableCarousel,
		CarouselRule: allocate.CarouselRule(cfg.CarouselRule),
		PollRatio:    cfg.PollRatio,
		Images:       cfg.EnableImages,
	}, rng)

	a.Pipeline, err = NewPipeline(PipelineDeps{
		Topics:    selector,
		Fetcher:   fetcher,
		Fallback:  fallback,
		Ledger:    led,
		Scorer:    scorer,
		Allocator: allocator,
		Rewriter:  rw,
		Publisher: pub,
		Carousel:  carousel.NewBuilder(carousel.DefaultTheme()),
		Enricher:  scr,
		Images:    images,
		Metrics:   m,
		Log:       log,
	}, Settings{
		TargetCount:      cfg.TargetCount,
		Language:         cfg.Language,
		Domains:          cfg.Domains,
		Since:            cfg.Since,
		StylePrompt:      cfg.StylePrompt,
		ItemTimeout:      cfg.ItemTimeout,
		SkipLedgerWrites: cfg.DryRun,
	})
	if err != nil {
		return fail(err)
	}
	return a, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.LedgerBackend {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return storage.NewFileStore(cfg.LedgerDir)
	}
}

func newSelector(cfg *config.Config, rng *rand.Rand) (*topic.Selector, error) {
	workdays, err := cfg.Workdays()
	if err != nil {
		return nil, err
	}
	blocks := make([]topic.Block, 0, len(cfg.Topics.Blocks))
	for _, b := range cfg.Topics.Blocks {
		blocks = append(blocks, topic.Block{Name: b.Name, Topics: b.Topics})
	}
	regional := topic.Block{Name: "regional", Topics: cfg.Topics.Regional}
	s, err := topic.NewSelector(blocks, regional, cfg.PRegional, workdays, rng)
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	return s, nil
}

func newFetchers(cfg *config.Config, httpClient *http.Client, log *slog.Logger) (Fetcher, Fetcher, error) {
	loadRSS := func() (Fetcher, error) {
		feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
		if err != nil {
			return nil, err
		}
		return rss.NewFetcher(feeds, cfg.RequestTimeout, log), nil
	}

	if cfg.Fetcher == "rss" {
		f, err := loadRSS()
		return f, nil, err
	}

	primary := newsapi.New(cfg.NewsAPIKey, cfg.NewsAPIURL, httpClient, log)
	if !cfg.RSSFallback {
		return primary, nil, nil
	}
	fallback, err := loadRSS()
	if err != nil {
		return nil, nil, fmt.Errorf("rss fallback: %w", err)
	}
	return primary, fallback, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (rewrite.Generator, func() error, error) {
	if cfg.Rewriter == "openai" {
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil, nil
	}
	c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return c, func() error { c.Close(); return nil }, nil
}
