// Package ratelimit keeps one token bucket per key (usually a client IP) in
// a bounded LRU table.
package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

type PerKey struct {
	mu       sync.Mutex
	visitors *lru.Cache[string, *visitor]
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// New builds a limiter allowing rps requests per second with burst per key.
// Keys idle for longer than ttl are dropped until ctx is done.
func New(ctx context.Context, rps float64, burst, size int, ttl time.Duration) *PerKey {
	if size <= 0 {
		size = 10_000
	}
	visitors, _ := lru.New[string, *visitor](size)
	p := &PerKey{
		visitors: visitors,
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
	if ttl > 0 {
		go p.janitor(ctx)
	}
	return p
}

func (p *PerKey) janitor(ctx context.Context) {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evict()
		}
	}
}

func (p *PerKey) evict() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for _, key := range p.visitors.Keys() {
		if v, ok := p.visitors.Peek(key); ok && now.Sub(v.last) > p.ttl {
			p.visitors.Remove(key)
		}
	}
}

// Allow takes one token from key's bucket.
func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	v, ok := p.visitors.Get(key)
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors.Add(key, v)
	}
	v.last = p.now()
	p.mu.Unlock()

	return v.limiter.Allow()
}

func (p *PerKey) Len() int {
	return p.visitors.Len()
}
