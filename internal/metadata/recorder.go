package metadata

import (
	"log/slog"
	"time"
)

/*
Metadata is write-only.
No component may read metadata to influence crawl decisions.

Recorder captures structured crawl events and writes them through slog.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events from one goroutine are recorded in the order they are received.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	workerId string
	logger   *slog.Logger
}

func NewRecorder(workerId string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		workerId: workerId,
		logger:   logger.With("recorder", workerId),
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := []any{
		slog.Time("observed_at", observedAt),
		slog.String("package", packageName),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("details", details),
	}
	r.logger.Warn("error", append(args, toArgs(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	method string,
	httpStatus int,
	duration time.Duration,
	contentLength int64,
	hops int,
) {
	r.logger.Debug("fetch",
		slog.String(string(AttrURL), fetchUrl),
		slog.String(string(AttrMethod), method),
		slog.Int("http_status", httpStatus),
		slog.Duration("rtt", duration),
		slog.Int64("content_length", contentLength),
		slog.Int(string(AttrHops), hops),
	)
}

func (r *Recorder) RecordSkip(reason SkipReason, skippedUrl string, attrs []Attribute) {
	args := []any{
		slog.String(string(AttrReason), string(reason)),
		slog.String(string(AttrURL), skippedUrl),
	}
	r.logger.Debug("skip", append(args, toArgs(attrs)...)...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []any{
		slog.String("kind", string(kind)),
		slog.String(string(AttrWritePath), path),
	}
	r.logger.Info("artifact", append(args, toArgs(attrs)...)...)
}

/*
RecordFinalCrawlStats records a terminal, derived summary of a completed crawl.

Contract:
  - MUST be called exactly once per crawl execution.
  - MUST be called only after quiescence was detected.
  - The values MUST be derived from the frozen statistics snapshot,
    not accumulated through the recorder.
*/
func (r *Recorder) RecordFinalCrawlStats(
	host string,
	totalPages int,
	totalResources int,
	totalErrors int,
	duration time.Duration,
) {
	r.logger.Info("crawl finished",
		slog.String(string(AttrHost), host),
		slog.Int("pages", totalPages),
		slog.Int("resources", totalResources),
		slog.Int("errors", totalErrors),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
}

func toArgs(attrs []Attribute) []any {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, slog.String(string(a.Key), a.Value))
	}
	return args
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordFetch(
		fetchUrl string,
		method string,
		httpStatus int,
		duration time.Duration,
		contentLength int64,
		hops int,
	)
	RecordSkip(reason SkipReason, skippedUrl string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		host string,
		totalPages int,
		totalResources int,
		totalErrors int,
		duration time.Duration,
	)
}

// NoopSink implements MetadataSink and CrawlFinalizer but does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	method string,
	httpStatus int,
	duration time.Duration,
	contentLength int64,
	hops int,
) {
}

func (n *NoopSink) RecordSkip(reason SkipReason, skippedUrl string, attrs []Attribute) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalCrawlStats(
	host string,
	totalPages int,
	totalResources int,
	totalErrors int,
	duration time.Duration,
) {
}
