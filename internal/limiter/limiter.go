package limiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerClient hands out a token-bucket limiter per client key (remote address).
// Buckets live for the process lifetime; the key space is small enough that
// eviction is not worth the bookkeeping.
type PerClient struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	r       rate.Limit
	burst   int
}

func New(perSec float64, burst int) *PerClient {
	if perSec <= 0 {
		perSec = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &PerClient{
		buckets: map[string]*rate.Limiter{},
		r:       rate.Limit(perSec),
		burst:   burst,
	}
}

// Allow reports whether the client may proceed right now.
func (p *PerClient) Allow(key string) bool {
	p.mu.Lock()
	b, ok := p.buckets[key]
	if !ok {
		b = rate.NewLimiter(p.r, p.burst)
		p.buckets[key] = b
	}
	p.mu.Unlock()
	return b.Allow()
}
