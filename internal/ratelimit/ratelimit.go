package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned once a run has spent its generation budget.
var ErrBudgetExhausted = errors.New("generation budget exhausted")

// GenerationLimiter gates calls to a text generation backend: a per-run
// request budget plus a token bucket spacing the calls out.
type GenerationLimiter struct {
	mu          sync.Mutex
	used        int
	max         int // 0 = unlimited
	cacheHits   int
	cacheMisses int
	limiter     *rate.Limiter
	log         *slog.Logger
}

// NewGenerationLimiter allows maxRequests calls, at most one every interval.
// A zero interval disables pacing.
func NewGenerationLimiter(maxRequests int, interval time.Duration, log *slog.Logger) *GenerationLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GenerationLimiter{
		max:     maxRequests,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Acquire reserves one request from the budget and waits for the bucket.
func (l *GenerationLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.max > 0 && l.used >= l.max {
		l.mu.Unlock()
		l.log.Warn("generation budget reached", "used", l.used, "limit", l.max)
		return ErrBudgetExhausted
	}
	l.used++
	l.cacheMisses++
	used := l.used
	l.mu.Unlock()

	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for generation slot: %w", err)
	}
	l.log.Debug("generation request", "used", used, "limit", l.max)
	return nil
}

// Remaining is the number of requests left; -1 when unlimited.
func (l *GenerationLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max <= 0 {
		return -1
	}
	return l.max - l.used
}

func (l *GenerationLimiter) RecordCacheHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cacheHits++
}

// CacheHitRate returns the hit rate as a percentage.
func (l *GenerationLimiter) CacheHitRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cacheHitRate()
}

func (l *GenerationLimiter) cacheHitRate() float64 {
	total := l.cacheHits + l.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(l.cacheHits) / float64(total) * 100
}

func (l *GenerationLimiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"generation_used":  l.used,
		"generation_limit": l.max,
		"cache_hits":       l.cacheHits,
		"cache_misses":     l.cacheMisses,
		"cache_hit_rate":   l.cacheHitRate(),
	}
}

// LogStats writes the run's usage summary.
func (l *GenerationLimiter) LogStats() {
	stats := l.GetStats()
	l.log.Info("generation usage",
		"used", stats["generation_used"],
		"limit", stats["generation_limit"],
		"cache_hits", stats["cache_hits"],
		"cache_hit_rate", stats["cache_hit_rate"],
	)
}
