package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/runpod/poddy-sub000/internal/cache"
)

const (
	mirrorTimeout      = time.Second
	breakerThreshold   = 5
	breakerResetPeriod = 30 * time.Second
)

// Recorder counts dispatches by metric and tag. Counts are kept in process
// and, when a redis client is given, mirrored into a hash per metric so every
// shard contributes to one total. Mirroring never blocks the caller and stops
// while redis keeps failing.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]map[string]int64

	c  *redis.Client
	cb *cache.CircuitBreaker
	wg sync.WaitGroup
	l  *slog.Logger
}

func NewRecorder(l *slog.Logger, c *redis.Client) *Recorder {
	return &Recorder{
		counts: make(map[string]map[string]int64),
		c:      c,
		cb:     cache.NewCircuitBreaker(breakerThreshold, breakerResetPeriod),
		l:      l,
	}
}

func (r *Recorder) Increment(ctx context.Context, metric, tag string) {
	r.mu.Lock()
	m, ok := r.counts[metric]
	if !ok {
		m = make(map[string]int64)
		r.counts[metric] = m
	}
	m[tag]++
	r.mu.Unlock()

	if r.c == nil || !r.cb.Allow() {
		return
	}

	mctx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		mctx, cancel := context.WithTimeout(mctx, mirrorTimeout)
		defer cancel()

		err := r.c.HIncrBy(mctx, "poddy:telemetry:"+metric, tag, 1).Err()
		r.cb.Record(err)
		if err != nil {
			r.l.Debug("error mirroring counter", "metric", metric, "tag", tag, "error", err, "circuit", r.cb.State())
		}
	}()
}

// Wait blocks until every pending mirror call has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Mirroring reports whether counters are currently mirrored to redis.
func (r *Recorder) Mirroring() bool {
	return r.c != nil && r.cb.State() != cache.StateOpen
}

// Count returns the in-process count for one tag of metric.
func (r *Recorder) Count(metric, tag string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[metric][tag]
}

// Total returns the in-process count of metric across all tags.
func (r *Recorder) Total(metric string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, n := range r.counts[metric] {
		total += n
	}
	return total
}
