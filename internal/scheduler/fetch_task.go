package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

/*
fetchTask fetches one URL and classifies the outcome.

	new → policy-check → dedupe-check → in-flight →
	    {classified-success | redirect-followed | failed} → done

Construction registers the task with the fetch liveness counter; every
exit path, including a panic or an abort, releases it.
*/
type fetchTask struct {
	s       *Scheduler
	run     *crawlRun
	url     urlutil.URL
	class   stats.Class
	referer string
	hops    int
}

func (s *Scheduler) newFetchTask(
	run *crawlRun,
	u urlutil.URL,
	class stats.Class,
	referer string,
	hops int,
) *fetchTask {
	s.live.addFetch()
	return &fetchTask{
		s:       s,
		run:     run,
		url:     u,
		class:   class,
		referer: referer,
		hops:    hops,
	}
}

func (t *fetchTask) Run(ctx context.Context) {
	defer t.s.fetchDone()
	t.execute(ctx)
}

func (t *fetchTask) Abort() {
	t.s.releaseFetch()
}

func (t *fetchTask) execute(ctx context.Context) {
	run := t.run
	internal := run.isInternal(t.url)

	if run.respectRobots {
		if decision := run.robot.Decide(t.url); !decision.Allowed {
			return
		}
	}

	if !run.visited.TryVisit(t.url) {
		t.s.metadataSink.RecordSkip(metadata.SkipDuplicate, t.url.String(), []metadata.Attribute{
			metadata.NewAttr(metadata.AttrReferer, t.referer),
		})
		return
	}

	host := t.url.Host()
	if !t.s.waitPoliteness(ctx, host) {
		return
	}

	method := fetcher.MethodGet
	if t.class.IsBlob() {
		method = fetcher.MethodHead
	}

	resp, err := t.s.client.Do(ctx, fetcher.NewRequest(method, t.url, t.referer))
	t.s.limiter.MarkLastFetchAsNow(host)
	if err != nil {
		if fetchErr, ok := err.(*fetcher.FetchError); ok && fetchErr.IsNetwork() {
			t.s.limiter.Backoff(host)
		}
		run.stats.AddFailure()
		return
	}
	t.s.limiter.ResetBackoff(host)
	run.stats.AddRTT(resp.RTT())

	switch resp.Code() {
	case fetcher.StatusOK:
		t.onSuccess(resp, internal)
	case fetcher.StatusMovedPermanently:
		t.onRedirect(resp)
	default:
		run.stats.AddFailure()
	}
}

func (t *fetchTask) onSuccess(resp fetcher.Response, internal bool) {
	run := t.run

	if t.class.IsBlob() {
		// a blob without content-length has no size to report
		if _, ok := resp.Header("content-length"); !ok {
			t.s.metadataSink.RecordSkip(metadata.SkipNoContentLength, t.url.String(), []metadata.Attribute{
				metadata.NewAttr(metadata.AttrReferer, t.referer),
			})
			return
		}
		run.stats.AddResource(t.class, resp.ContentLength())
		return
	}

	if !internal {
		run.stats.AddExternalLink(t.url.Host())
		return
	}

	run.stats.AddInternalPage(resp.ContentLength(), resp.Body())
	t.s.analyzePool.Submit(t.s.newAnalyzeTask(run, t.url, resp.Body()))
}

func (t *fetchTask) onRedirect(resp fetcher.Response) {
	location := resp.Location()
	if location == "" {
		t.run.stats.AddFailure()
		return
	}

	if t.hops >= t.s.cfg.MaxRedirects() {
		t.s.metadataSink.RecordSkip(metadata.SkipRedirectLimit, location, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrReferer, t.url.String()),
			metadata.NewAttr(metadata.AttrHops, strconv.Itoa(t.hops)),
		})
		return
	}

	target, err := urlutil.Absolutize(location, t.url)
	if err != nil {
		reason := metadata.SkipMalformed
		if urlutil.IsUnsupportedScheme(err) {
			reason = metadata.SkipUnsupportedScheme
		}
		t.s.metadataSink.RecordSkip(reason, location, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrReferer, t.url.String()),
		})
		return
	}

	t.s.fetchPool.Submit(t.s.newFetchTask(t.run, target, t.class, t.url.String(), t.hops+1))
}

// waitPoliteness sleeps for the limiter's delay. It returns false if ctx
// ended first.
func (s *Scheduler) waitPoliteness(ctx context.Context, host string) bool {
	delay := s.limiter.ResolveDelay(host)
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
