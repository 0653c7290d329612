package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/config"
	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/internal/notify"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
	"github.com/stretchr/testify/require"
)

const testHost = "example.test"

// fakeSite serves canned responses keyed by normalized URL.
type fakeSite struct {
	mu        sync.Mutex
	responses map[string]fetcher.Response
	failures  map[string]failure.ClassifiedError
	requests  []fetcher.Request

	// gate, when set, holds every non-robots request until closed.
	gate chan struct{}
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		responses: map[string]fetcher.Response{},
		failures:  map[string]failure.ClassifiedError{},
	}
}

func siteURL(path string) string {
	return "http://" + testHost + ":80" + path
}

func (f *fakeSite) page(rawURL string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[rawURL] = fetcher.NewResponseForTest(200, map[string]string{
		"Content-Length": strconv.Itoa(len(body)),
		"Content-Type":   "text/html",
	}, []byte(body), 10*time.Millisecond)
}

func (f *fakeSite) blob(rawURL string, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[rawURL] = fetcher.NewResponseForTest(200, map[string]string{
		"Content-Length": strconv.Itoa(size),
	}, nil, 10*time.Millisecond)
}

// blobWithoutLength answers 200 with no content-length header.
func (f *fakeSite) blobWithoutLength(rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[rawURL] = fetcher.NewResponseForTest(200, nil, nil, 10*time.Millisecond)
}

func (f *fakeSite) totalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSite) redirect(rawURL string, location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[rawURL] = fetcher.NewResponseForTest(301, map[string]string{
		"Location": location,
	}, nil, 10*time.Millisecond)
}

func (f *fakeSite) fail(rawURL string, err failure.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[rawURL] = err
}

func (f *fakeSite) Do(ctx context.Context, req fetcher.Request) (fetcher.Response, failure.ClassifiedError) {
	key := req.URL().String()

	f.mu.Lock()
	f.requests = append(f.requests, req)
	resp, ok := f.responses[key]
	err := f.failures[key]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil && req.URL().Path() != "/robots.txt" {
		select {
		case <-gate:
		case <-ctx.Done():
			return fetcher.Response{}, &fetcher.FetchError{Message: "cancelled", Cause: fetcher.ErrCauseCancelled}
		}
	}

	if err != nil {
		return fetcher.Response{}, err
	}
	if !ok {
		return fetcher.NewResponseForTest(404, nil, nil, 10*time.Millisecond), nil
	}
	return resp, nil
}

// requestCount returns how many times rawURL was requested.
func (f *fakeSite) requestCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.URL().String() == rawURL {
			n++
		}
	}
	return n
}

func (f *fakeSite) methodOf(rawURL string) fetcher.Method {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.URL().String() == rawURL {
			return r.Method()
		}
	}
	return ""
}

func pipeDial(ctx context.Context, network, address string) (net.Conn, error) {
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

type countingDial struct {
	calls atomic.Int32
}

func (c *countingDial) dial(ctx context.Context, network, address string) (net.Conn, error) {
	c.calls.Add(1)
	return nil, errors.New("connection refused")
}

type fakeScanner struct {
	ports []int
	err   failure.ClassifiedError
}

func (f *fakeScanner) Scan(ctx context.Context, host string, start, end int) ([]int, failure.ClassifiedError) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ports, nil
}

type completionLog struct {
	mu          sync.Mutex
	completions []notify.Completion
}

func (c *completionLog) notifier() notify.Notifier {
	return notify.Func(func(ctx context.Context, completion notify.Completion) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.completions = append(c.completions, completion)
		return nil
	})
}

func (c *completionLog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.completions)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.WithDefault().
		WithMaxFetchers(4).
		WithMaxAnalyzers(2).
		WithTimeout(time.Second).
		WithMaxAttempt(2).
		WithBackoffInitialDuration(time.Millisecond).
		WithBackoffMaxDuration(2 * time.Millisecond).
		WithRandomSeed(1).
		WithOutputDir(t.TempDir())
}

type harness struct {
	scheduler   *Scheduler
	site        *fakeSite
	completions *completionLog
}

func newHarness(t *testing.T, cfg *config.Config, deps Deps) *harness {
	t.Helper()
	built, err := cfg.Build()
	require.NoError(t, err)

	site := newFakeSite()
	completions := &completionLog{}

	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if deps.MetadataSink == nil {
		deps.MetadataSink = &metadata.NoopSink{}
	}
	if deps.CrawlFinalizer == nil {
		deps.CrawlFinalizer = &metadata.NoopSink{}
	}
	if deps.Fetcher == nil {
		deps.Fetcher = site
	}
	if deps.Dial == nil {
		deps.Dial = pipeDial
	}
	if deps.Notifier == nil {
		deps.Notifier = completions.notifier()
	}

	s, err := NewSchedulerWithDeps(built, deps)
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)

	return &harness{scheduler: s, site: site, completions: completions}
}

func (h *harness) crawl(t *testing.T, portScan, disrespectRobots bool) Result {
	t.Helper()
	require.NoError(t, h.scheduler.Start(context.Background(), testHost, portScan, disrespectRobots))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.scheduler.WaitIdle(ctx))

	result, ok := h.scheduler.LastResult()
	require.True(t, ok)
	return result
}
