package limiter

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/site-crawler/pkg/timeutil"
)

// RateLimiter keeps the crawl polite towards a host.
// Responsibilities:
// - Bookkeep each hostname's last fetch timestamp
// - Track consecutive network failures per host as exponential backoff
// - Compute the remaining delay before the next fetch to a host
type RateLimiter interface {
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
	Reset()
}

type ConcurrentRateLimiter struct {
	mu           sync.RWMutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentRateLimiter(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	backoffParam timeutil.BackoffParam,
) *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		baseDelay:    baseDelay,
		jitter:       jitter,
		backoffParam: backoffParam,
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(randomSeed)),
	}
}

// Backoff increments the host's failure counter and recomputes its delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.backoffCount++
	timing.backoffDelay = r.backoffDelay(timing.backoffCount)
	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timing, exists := r.hostTimings[host]; exists {
		timing.backoffCount = 0
		timing.backoffDelay = 0
		r.hostTimings[host] = timing
	}
}

func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.lastFetchAt = time.Now()
	r.hostTimings[host] = timing
}

// ResolveDelay returns how long a caller should still wait before fetching
// from host: max(baseDelay, backoffDelay) + jitter minus the time elapsed
// since the last fetch. Unknown hosts are never delayed.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	timing, exists := r.hostTimings[host]
	base := r.baseDelay
	jitter := r.jitter
	r.mu.RUnlock()

	if !exists {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, timing.backoffDelay})
	finalDelay += r.computeJitter(jitter)

	elapsed := time.Since(timing.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

// Reset forgets every host.
func (r *ConcurrentRateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostTimings = make(map[string]hostTiming)
}

func (r *ConcurrentRateLimiter) HostTiming(host string) (hostTiming, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timing, ok := r.hostTimings[host]
	return timing, ok
}

// caller must hold r.mu
func (r *ConcurrentRateLimiter) backoffDelay(count int) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return timeutil.ExponentialBackoffDelay(count, r.jitter, *r.rng, r.backoffParam)
}

func (r *ConcurrentRateLimiter) computeJitter(max time.Duration) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return timeutil.ComputeJitter(max, *r.rng)
}
