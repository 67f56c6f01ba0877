package app

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/newsposter/internal/allocate"
	"github.com/deusflow/newsposter/internal/carousel"
	"github.com/deusflow/newsposter/internal/ledger"
	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/metrics"
	"github.com/deusflow/newsposter/internal/news"
	"github.com/deusflow/newsposter/internal/publish"
	"github.com/deusflow/newsposter/internal/rewrite"
	"github.com/deusflow/newsposter/internal/storage"
)

var runAt = time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)

type fixedTopic string

func (f fixedTopic) Select(time.Time) string { return string(f) }

type stubFetcher struct {
	items   []news.Item
	queries []news.Query
}

func (s *stubFetcher) Fetch(ctx context.Context, q news.Query) []news.Item {
	s.queries = append(s.queries, q)
	return s.items
}

// routedGenerator answers by prompt kind; polls always fail.
type routedGenerator struct {
	slides string
	calls  int
}

func (g *routedGenerator) Name() string { return "routed" }

func (g *routedGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.calls++
	switch {
	case strings.Contains(prompt, "encuesta"):
		return "", errors.New("model overloaded")
	case strings.Contains(prompt, "carrusel"):
		return g.slides, nil
	default:
		return "Resumen breve y claro de la noticia para la audiencia profesional.", nil
	}
}

const threeSlides = `[{"title":"Qué pasó","body":"Se aprobó la reforma."},
{"title":"Por qué importa","body":"Cambia las reglas."},
{"title":"Qué sigue","body":"Debate en el Senado."}]`

type failingLedger struct{}

func (failingLedger) IsPublished(ctx context.Context, url, title string) (bool, error) {
	return false, nil
}

func (failingLedger) MarkPublished(ctx context.Context, url, title string) error {
	return errors.New("disk full")
}

func scenarioItems() []news.Item {
	return []news.Item{
		{URL: "https://a.mx/1", Title: "Lluvias en Oaxaca", Description: "El servicio meteorológico prevé tormentas durante el fin de semana en la región."},
		{URL: "https://a.mx/2", Title: "Banxico sube la tasa de interés", Description: "La junta decidió por unanimidad."},
		{URL: "https://a.mx/3", Title: "Nuevo parque industrial genera empleo", Description: "La planta abrirá 2,000 vacantes en Nuevo León durante el próximo año."},
		{URL: "https://a.mx/4", Title: "Senado discute la reforma judicial", Description: "Colectivos convocan a protesta frente al recinto mientras avanza la votación."},
		{URL: "https://a.mx/5", Title: "Pemex reporta pérdidas", Description: "La petrolera presentó su informe trimestral."},
	}
}

type fixture struct {
	store     *storage.MemoryStore
	ledger    *ledger.Ledger
	fetcher   *stubFetcher
	gen       *routedGenerator
	publisher *publish.DryRun
	metrics   *metrics.Metrics
	deps      PipelineDeps
	settings  Settings
}

func newFixture(t *testing.T, policy allocate.Policy) *fixture {
	t.Helper()
	f := &fixture{
		store:     storage.NewMemoryStore(),
		fetcher:   &stubFetcher{items: scenarioItems()},
		gen:       &routedGenerator{slides: threeSlides},
		publisher: publish.NewDryRun(logger.Discard()),
		metrics:   metrics.New(),
	}
	f.ledger = ledger.New(f.store,
		ledger.WithClock(func() time.Time { return runAt }),
		ledger.WithLogger(logger.Discard()),
	)
	scorer, err := news.NewScorer([]string{"reforma", "protesta"}, []string{"empleo", "inversión"})
	if err != nil {
		t.Fatal(err)
	}
	f.deps = PipelineDeps{
		Topics:    fixedTopic("reforma judicial"),
		Fetcher:   f.fetcher,
		Ledger:    f.ledger,
		Scorer:    scorer,
		Allocator: allocate.New(policy, rand.New(rand.NewSource(7))),
		Rewriter:  rewrite.New(f.gen, rewrite.WithLogger(logger.Discard())),
		Publisher: f.publisher,
		Carousel:  carousel.NewBuilder(carousel.DefaultTheme()),
		Metrics:   f.metrics,
		Log:       logger.Discard(),
	}
	f.settings = Settings{TargetCount: 3, Language: "es", Since: 48 * time.Hour, StylePrompt: "Tono cercano."}
	return f
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(f.deps, f.settings)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) records(t *testing.T) []storage.Record {
	t.Helper()
	recs, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestRun_Scenario(t *testing.T) {
	f := newFixture(t, allocate.Policy{Carousel: true, CarouselRule: allocate.CarouselTopRank, PollRatio: 0.5})
	ctx := context.Background()

	// Items 2 and 5 went out yesterday.
	for _, it := range []news.Item{scenarioItems()[1], scenarioItems()[4]} {
		if err := f.ledger.MarkPublished(ctx, it.URL, it.Title); err != nil {
			t.Fatal(err)
		}
	}

	report, err := f.pipeline(t).Run(ctx, runAt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Fetched != 5 || report.Dedup.Duplicates != 2 || report.Selected != 3 {
		t.Errorf("report = %+v", report)
	}
	if len(f.fetcher.queries) != 1 || f.fetcher.queries[0].Text != "reforma judicial" || f.fetcher.queries[0].PageSize != 9 {
		t.Errorf("queries = %+v", f.fetcher.queries)
	}

	posts := f.publisher.Posts()
	if len(posts) != 3 {
		t.Fatalf("published %d posts, want 3", len(posts))
	}
	kinds := map[string]int{}
	for _, p := range posts {
		kinds[p.Kind]++
	}
	if kinds["document"] != 1 || kinds["poll"] != 1 || kinds["text"] != 1 {
		t.Errorf("post kinds = %v", kinds)
	}

	// The rank-4 item carries the carousel.
	if posts[0].Kind != "document" || posts[0].Title != "Senado discute la reforma judicial" || posts[0].PDFSize == 0 {
		t.Errorf("first post = %+v", posts[0])
	}
	for _, p := range posts {
		if p.Kind != "poll" {
			continue
		}
		def := rewrite.DefaultPoll()
		if p.Question != def.Question || len(p.Options) != len(def.Options) {
			t.Errorf("poll = %q %v, want the default poll", p.Question, p.Options)
		}
	}
	for _, p := range posts {
		if !strings.Contains(p.Text, "\n\nFuente: https://a.mx/") {
			t.Errorf("post text missing source line: %q", p.Text)
		}
	}

	if got := len(f.records(t)); got != 5 {
		t.Errorf("ledger has %d records, want 5", got)
	}
	if report.Published() != 3 {
		t.Errorf("Published() = %d", report.Published())
	}
	if f.metrics.RewriteFailures != 1 || f.metrics.PostsPublished != 3 {
		t.Errorf("metrics = %v", f.metrics.GetStats())
	}
}

func TestRun_SecondRunPublishesNothing(t *testing.T) {
	f := newFixture(t, allocate.DefaultPolicy())
	f.settings.TargetCount = 5
	ctx := context.Background()

	if _, err := f.pipeline(t).Run(ctx, runAt); err != nil {
		t.Fatal(err)
	}
	first := len(f.publisher.Posts())

	report, err := f.pipeline(t).Run(ctx, runAt.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if first != 5 || len(f.publisher.Posts()) != first {
		t.Errorf("posts after runs = %d, %d", first, len(f.publisher.Posts()))
	}
	if !report.EarlyExit || report.Dedup.Duplicates != 5 {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_NothingFetched(t *testing.T) {
	f := newFixture(t, allocate.DefaultPolicy())
	f.fetcher.items = nil

	report, err := f.pipeline(t).Run(context.Background(), runAt)
	if err != nil {
		t.Fatal(err)
	}
	if !report.EarlyExit || len(f.publisher.Posts()) != 0 || f.gen.calls != 0 {
		t.Errorf("report = %+v, generator calls = %d", report, f.gen.calls)
	}
	if !f.metrics.Healthy() {
		t.Error("an empty run is not an error")
	}
}

func TestRun_FallbackFetcher(t *testing.T) {
	f := newFixture(t, allocate.Policy{})
	fallback := &stubFetcher{items: scenarioItems()[:1]}
	f.fetcher.items = nil
	f.deps.Fallback = fallback

	report, err := f.pipeline(t).Run(context.Background(), runAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(fallback.queries) != 1 || report.Fetched != 1 || report.Published() != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_CarouselFallsBack(t *testing.T) {
	f := newFixture(t, allocate.Policy{Carousel: true})
	f.gen.slides = "no es JSON"
	f.fetcher.items = scenarioItems()[:1]

	report, err := f.pipeline(t).Run(context.Background(), runAt)
	if err != nil {
		t.Fatal(err)
	}
	posts := f.publisher.Posts()
	if len(posts) != 1 || posts[0].Kind != "text" {
		t.Fatalf("posts = %+v", posts)
	}
	it := report.Items[0]
	if it.Planned != allocate.FormatCarousel || it.Format != allocate.FormatPlain || it.State != StatePublished {
		t.Errorf("item = %+v", it)
	}
	if f.metrics.FormatFallbacks != 1 {
		t.Errorf("fallbacks = %d", f.metrics.FormatFallbacks)
	}
}

func TestRun_CarouselFallsBackToImage(t *testing.T) {
	f := newFixture(t, allocate.Policy{Carousel: true})
	f.deps.Carousel = nil
	item := scenarioItems()[0]
	item.ImageURL = "https://a.mx/foto.jpg"
	f.fetcher.items = []news.Item{item}

	if _, err := f.pipeline(t).Run(context.Background(), runAt); err != nil {
		t.Fatal(err)
	}
	posts := f.publisher.Posts()
	if len(posts) != 1 || posts[0].Kind != "image" || posts[0].ImageURL != item.ImageURL {
		t.Errorf("posts = %+v", posts)
	}
}

func TestRun_SkipLedgerWrites(t *testing.T) {
	f := newFixture(t, allocate.DefaultPolicy())
	f.settings.SkipLedgerWrites = true

	report, err := f.pipeline(t).Run(context.Background(), runAt)
	if err != nil {
		t.Fatal(err)
	}
	if report.Published() != 3 || len(f.records(t)) != 0 {
		t.Errorf("published %d, records %d", report.Published(), len(f.records(t)))
	}
}

func TestRun_LedgerWriteFailureKeepsGoing(t *testing.T) {
	f := newFixture(t, allocate.Policy{})
	f.deps.Ledger = failingLedger{}

	report, err := f.pipeline(t).Run(context.Background(), runAt)
	if err != nil {
		t.Fatal(err)
	}
	if report.Published() != 3 {
		t.Fatalf("published %d, want 3", report.Published())
	}
	for _, it := range report.Items {
		if it.LedgerErr == "" {
			t.Errorf("item %s: ledger error not reported", it.URL)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, allocate.Policy{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline(t).Run(ctx, runAt)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if f.metrics.Healthy() {
		t.Error("cancelled run should mark metrics unhealthy")
	}
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	f := newFixture(t, allocate.DefaultPolicy())
	f.deps.Publisher = nil
	if _, err := NewPipeline(f.deps, f.settings); err == nil {
		t.Error("expected an error without a publisher")
	}
	f = newFixture(t, allocate.DefaultPolicy())
	f.settings.TargetCount = 0
	if _, err := NewPipeline(f.deps, f.settings); err == nil {
		t.Error("expected an error for a zero target count")
	}
}

func TestFormatPost(t *testing.T) {
	got := FormatPost("Título", "Cuerpo", "https://a.mx/1")
	want := "Título\n\nCuerpo\n\nFuente: https://a.mx/1"
	if got != want {
		t.Errorf("FormatPost = %q, want %q", got, want)
	}
}
