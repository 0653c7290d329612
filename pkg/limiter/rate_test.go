package limiter

import (
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/site-crawler/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(base time.Duration) *ConcurrentRateLimiter {
	return NewConcurrentRateLimiter(
		base,
		0,
		1,
		timeutil.NewBackoffParam(100*time.Millisecond, 2.0, time.Second),
	)
}

func TestResolveDelay_UnknownHostIsZero(t *testing.T) {
	r := newTestLimiter(time.Second)
	assert.Equal(t, time.Duration(0), r.ResolveDelay("example.com"))
}

func TestResolveDelay_BaseDelayAfterFetch(t *testing.T) {
	r := newTestLimiter(time.Second)
	r.MarkLastFetchAsNow("example.com")

	got := r.ResolveDelay("example.com")
	assert.Greater(t, got, 900*time.Millisecond)
	assert.LessOrEqual(t, got, time.Second)
}

func TestResolveDelay_ZeroBaseDelayNeverWaits(t *testing.T) {
	r := newTestLimiter(0)
	r.MarkLastFetchAsNow("example.com")
	assert.Equal(t, time.Duration(0), r.ResolveDelay("example.com"))
}

func TestBackoff_GrowsAndResets(t *testing.T) {
	r := newTestLimiter(0)

	r.Backoff("example.com")
	timing, ok := r.HostTiming("example.com")
	require.True(t, ok)
	assert.Equal(t, 1, timing.BackoffCount())
	assert.Equal(t, 100*time.Millisecond, timing.BackOffDelay())

	r.Backoff("example.com")
	timing, _ = r.HostTiming("example.com")
	assert.Equal(t, 2, timing.BackoffCount())
	assert.Equal(t, 200*time.Millisecond, timing.BackOffDelay())

	r.ResetBackoff("example.com")
	timing, _ = r.HostTiming("example.com")
	assert.Equal(t, 0, timing.BackoffCount())
	assert.Equal(t, time.Duration(0), timing.BackOffDelay())
}

func TestReset_ForgetsHosts(t *testing.T) {
	r := newTestLimiter(time.Second)
	r.MarkLastFetchAsNow("example.com")
	r.Reset()

	_, ok := r.HostTiming("example.com")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	r := newTestLimiter(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host := []string{"a.com", "b.com"}[i%2]
			r.MarkLastFetchAsNow(host)
			r.Backoff(host)
			_ = r.ResolveDelay(host)
			r.ResetBackoff(host)
		}(i)
	}
	wg.Wait()

	for _, host := range []string{"a.com", "b.com"} {
		timing, ok := r.HostTiming(host)
		require.True(t, ok)
		assert.GreaterOrEqual(t, timing.BackoffCount(), 0)
	}
}
