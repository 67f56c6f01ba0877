package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deusflow/newsposter/internal/logger"
)

func TestAcquire_Budget(t *testing.T) {
	l := NewGenerationLimiter(2, 0, logger.Discard())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if err := l.Acquire(ctx); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("third Acquire = %v, want ErrBudgetExhausted", err)
	}
	if l.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining())
	}
}

func TestAcquire_Unlimited(t *testing.T) {
	l := NewGenerationLimiter(0, 0, logger.Discard())
	for i := 0; i < 50; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if l.Remaining() != -1 {
		t.Errorf("Remaining = %d, want -1", l.Remaining())
	}
}

func TestAcquire_HonoursContext(t *testing.T) {
	l := NewGenerationLimiter(0, time.Hour, logger.Discard())
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("second Acquire should not get a slot within the deadline")
	}
}

func TestCacheHitRate(t *testing.T) {
	l := NewGenerationLimiter(0, 0, logger.Discard())
	_ = l.Acquire(context.Background())
	l.RecordCacheHit()
	l.RecordCacheHit()
	l.RecordCacheHit()

	if got := l.CacheHitRate(); got != 75 {
		t.Errorf("CacheHitRate = %v, want 75", got)
	}
	if l.GetStats()["cache_hits"] != 3 {
		t.Errorf("stats = %v", l.GetStats())
	}
}
