package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	Runs               int64
	ItemsFetched       int64
	IneligibleFiltered int64
	DuplicatesFiltered int64
	PostsPublished     int64
	PublishFailures    int64
	FormatFallbacks    int64 // carousel/image items posted in a simpler format
	RewriteFailures    int64

	PublishedByFormat map[string]int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, PublishedByFormat: map[string]int64{}}
}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsFetched += int64(n)
}

func (m *Metrics) AddFiltered(ineligible, duplicates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IneligibleFiltered += int64(ineligible)
	m.DuplicatesFiltered += int64(duplicates)
}

func (m *Metrics) IncrementPublished(format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostsPublished++
	m.PublishedByFormat[format]++
}

func (m *Metrics) IncrementPublishFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishFailures++
}

func (m *Metrics) IncrementFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FormatFallbacks++
}

func (m *Metrics) AddRewriteFailures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewriteFailures += int64(n)
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Runs++
	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.Runs)
}

func (m *Metrics) SetLastRun(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = t
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = t
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byFormat := make(map[string]int64, len(m.PublishedByFormat))
	for k, v := range m.PublishedByFormat {
		byFormat[k] = v
	}

	return map[string]interface{}{
		"runs":                       m.Runs,
		"items_fetched":              m.ItemsFetched,
		"ineligible_filtered":        m.IneligibleFiltered,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"posts_published":            m.PostsPublished,
		"published_by_format":        byFormat,
		"publish_failures":           m.PublishFailures,
		"format_fallbacks":           m.FormatFallbacks,
		"rewrite_failures":           m.RewriteFailures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              formatTime(m.LastRunTime),
		"last_error_time":            formatTime(m.LastErrorTime),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
