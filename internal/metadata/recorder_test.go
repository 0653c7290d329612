package metadata

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferedRecorder(level slog.Level) (*Recorder, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}))
	return NewRecorder("test", logger), &buf
}

func TestRecorder_RecordErrorWritesCauseAndAttrs(t *testing.T) {
	r, buf := newBufferedRecorder(slog.LevelDebug)

	r.RecordError(
		time.Now(),
		"fetcher",
		"Client.Do",
		CauseNetworkFailure,
		"connection refused",
		[]Attribute{NewAttr(AttrURL, "http://example.com:80/")},
	)

	out := buf.String()
	assert.Contains(t, out, "cause=network_failure")
	assert.Contains(t, out, "package=fetcher")
	assert.Contains(t, out, "url=http://example.com:80/")
	assert.Contains(t, out, "recorder=test")
}

func TestRecorder_FetchIsDebugLevel(t *testing.T) {
	r, buf := newBufferedRecorder(slog.LevelInfo)
	r.RecordFetch("http://example.com:80/", "GET", 200, 10*time.Millisecond, 512, 0)
	assert.Empty(t, buf.String())

	r, buf = newBufferedRecorder(slog.LevelDebug)
	r.RecordFetch("http://example.com:80/", "GET", 200, 10*time.Millisecond, 512, 0)
	assert.Contains(t, buf.String(), "http_status=200")
	assert.Contains(t, buf.String(), "content_length=512")
}

func TestRecorder_FinalStats(t *testing.T) {
	r, buf := newBufferedRecorder(slog.LevelInfo)
	r.RecordFinalCrawlStats("example.com", 3, 5, 1, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "crawl finished")
	assert.Contains(t, out, "pages=3")
	assert.Contains(t, out, "duration_ms=1500")
}

func TestErrorCause_String(t *testing.T) {
	assert.Equal(t, "policy_disallow", CausePolicyDisallow.String())
	assert.Equal(t, "unknown", ErrorCause(99).String())
}

func TestNoopSink_SatisfiesInterfaces(t *testing.T) {
	var sink MetadataSink = &NoopSink{}
	var fin CrawlFinalizer = &NoopSink{}
	sink.RecordSkip(SkipDuplicate, "http://x:80/", nil)
	fin.RecordFinalCrawlStats("x", 0, 0, 0, 0)
}
