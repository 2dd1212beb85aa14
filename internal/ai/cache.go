package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
)

// Cached memoizes successful summaries of identical input for a bounded time.
// Concurrent requests for the same input share one upstream call, which runs
// detached from any single caller's cancellation. Failures are never stored.
type Cached struct {
	next        Summarizer
	cache       otter.Cache[string, string]
	flight      singleflight.Group
	callTimeout time.Duration
}

// NewCached wraps next with a cache of at most size entries. A non-positive
// size returns next unchanged. callTimeout bounds the shared upstream call;
// zero leaves it to next.
func NewCached(next Summarizer, size int, ttl, callTimeout time.Duration) (Summarizer, error) {
	if size <= 0 {
		return next, nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	cache, err := otter.MustBuilder[string, string](size).WithTTL(ttl).Build()
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache, callTimeout: callTimeout}, nil
}

// SummarizeActivity implements Summarizer.
func (c *Cached) SummarizeActivity(ctx context.Context, req ActivityRequest) (string, error) {
	return c.lookup(ctx, OperationActivity, req, func(ctx context.Context) (string, error) {
		return c.next.SummarizeActivity(ctx, req)
	})
}

// SummarizeReview implements Summarizer.
func (c *Cached) SummarizeReview(ctx context.Context, activities []domain.Activity) (string, error) {
	return c.lookup(ctx, OperationReview, activities, func(ctx context.Context) (string, error) {
		return c.next.SummarizeReview(ctx, activities)
	})
}

// Status implements Summarizer.
func (c *Cached) Status() Status {
	return c.next.Status()
}

// Close stops the cache's background maintenance.
func (c *Cached) Close() {
	c.cache.Close()
}

func (c *Cached) lookup(ctx context.Context, operation string, input any, generate func(context.Context) (string, error)) (string, error) {
	key, err := cacheKey(operation, input)
	if err != nil {
		return generate(ctx)
	}

	if summary, ok := c.cache.Get(key); ok {
		observability.RecordAICacheHit(operation)
		return summary, nil
	}

	results := c.flight.DoChan(key, func() (any, error) {
		shared, cancel := c.sharedContext(ctx)
		defer cancel()

		summary, err := generate(shared)
		if err != nil {
			return "", err
		}
		c.cache.Set(key, summary)
		return summary, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cached) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.callTimeout > 0 {
		return context.WithTimeout(detached, c.callTimeout)
	}
	return context.WithCancel(detached)
}

func cacheKey(operation string, input any) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(operation+":"), payload...))
	return hex.EncodeToString(sum[:]), nil
}
