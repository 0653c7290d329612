package scheduler

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootPage = `<html><head><title> Example
  Home </title></head><body>
<a href="/a.html">A</a>
<a href="b.html">B</a>
<img src="/img/logo.png">
<a href="/files/doc.pdf">manual</a>
<a href="http://other.test/">elsewhere</a>
</body></html>`

const (
	pageA = `<a href="/">home</a><a href="/b.html">b</a>`
	pageB = `<p>leaf</p>`
)

func TestStart_CrawlsSiteUntilQuiescent(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), rootPage)
	h.site.page(siteURL("/a.html"), pageA)
	h.site.page(siteURL("/b.html"), pageB)
	h.site.blob(siteURL("/img/logo.png"), 100)
	h.site.blob(siteURL("/files/doc.pdf"), 50)
	h.site.page("http://other.test:80/", `<a href="/never">x</a>`)

	result := h.crawl(t, false, false)
	snap := result.Snapshot

	assert.Equal(t, testHost, snap.Host)
	assert.Equal(t, "Example Home", snap.Title)
	assert.Equal(t, stats.ClassTotal{Count: 3, Bytes: int64(len(rootPage) + len(pageA) + len(pageB))}, snap.Pages)
	assert.Equal(t, stats.ClassTotal{Count: 1, Bytes: 100}, snap.Images)
	assert.Equal(t, stats.ClassTotal{Count: 1, Bytes: 50}, snap.Documents)
	assert.Equal(t, 3, snap.InternalLinks)
	assert.Equal(t, 1, snap.ExternalLinks)
	assert.Equal(t, []string{"other.test"}, snap.ExternalDomains)
	assert.Equal(t, 10*time.Millisecond, snap.AverageRTT)
	assert.Nil(t, result.Err)

	for _, u := range []string{siteURL("/"), siteURL("/a.html"), siteURL("/b.html"), siteURL("/img/logo.png"), siteURL("/files/doc.pdf")} {
		assert.Equal(t, 1, h.site.requestCount(u), u)
	}
	assert.Equal(t, 0, h.site.requestCount("http://other.test:80/never"))
	assert.Equal(t, fetcher.MethodHead, h.site.methodOf(siteURL("/img/logo.png")))
	assert.Equal(t, fetcher.MethodGet, h.site.methodOf(siteURL("/a.html")))

	assert.Equal(t, StateIdle, h.scheduler.State())
	assert.Equal(t, 1, h.completions.count())

	require.NotEmpty(t, result.ReportPath)
	_, statErr := os.Stat(result.ReportPath)
	assert.NoError(t, statErr)

	history, err := h.scheduler.CrawlingHistory()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStart_RejectsSecondStartWhileRunning(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<p>slow</p>`)
	gate := make(chan struct{})
	h.site.gate = gate

	require.NoError(t, h.scheduler.Start(context.Background(), testHost, false, false))
	assert.Equal(t, StateRunning, h.scheduler.State())

	err := h.scheduler.Start(context.Background(), testHost, false, false)
	var crawlErr *CrawlingError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, ErrCauseAlreadyRunning, crawlErr.Cause)

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.scheduler.WaitIdle(ctx))
	assert.Equal(t, StateIdle, h.scheduler.State())
	assert.Equal(t, 1, h.completions.count())
}

func TestStart_CanRunAgainAfterFinishing(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<a href="/a.html">a</a>`)
	h.site.page(siteURL("/a.html"), `<p>a</p>`)

	first := h.crawl(t, false, false)
	second := h.crawl(t, false, false)

	assert.Equal(t, 2, first.Snapshot.Pages.Count)
	assert.Equal(t, 2, second.Snapshot.Pages.Count, "visited set and statistics start fresh")
	assert.Equal(t, 2, h.site.requestCount(siteURL("/a.html")))
	assert.Equal(t, 2, h.completions.count())
}

func TestStart_UnreachableHost(t *testing.T) {
	dial := &countingDial{}
	h := newHarness(t, testConfig(t), Deps{Dial: dial.dial})

	err := h.scheduler.Start(context.Background(), testHost, false, false)
	var crawlErr *CrawlingError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, ErrCauseUnreachable, crawlErr.Cause)
	assert.Equal(t, int32(2), dial.calls.Load())
	assert.Equal(t, StateIdle, h.scheduler.State())
	assert.Equal(t, 0, h.completions.count())
}

func TestStart_MalformedHost(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})

	err := h.scheduler.Start(context.Background(), "exa mple.com", false, false)
	var crawlErr *CrawlingError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, ErrCauseMalformedHost, crawlErr.Cause)
	assert.Equal(t, StateIdle, h.scheduler.State())
}

func TestStart_RedirectChainEndingAtVisitedURL(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<a href="/old">old</a>`)
	h.site.redirect(siteURL("/old"), "/mid")
	h.site.redirect(siteURL("/mid"), "new")
	h.site.redirect(siteURL("/new"), "http://"+testHost+"/")

	result := h.crawl(t, false, false)

	assert.Equal(t, 1, h.site.requestCount(siteURL("/")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/old")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/mid")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/new")))
	assert.Equal(t, 1, result.Snapshot.Pages.Count)
}

func TestStart_RedirectHopLimit(t *testing.T) {
	h := newHarness(t, testConfig(t).WithMaxRedirects(1), Deps{})
	h.site.page(siteURL("/"), `<a href="/r1">r</a>`)
	h.site.redirect(siteURL("/r1"), "/r2")
	h.site.redirect(siteURL("/r2"), "/r3")
	h.site.page(siteURL("/r3"), `<p>end</p>`)

	h.crawl(t, false, false)

	assert.Equal(t, 1, h.site.requestCount(siteURL("/r2")))
	assert.Equal(t, 0, h.site.requestCount(siteURL("/r3")))
}

func TestStart_RespectsRobotsPolicy(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/robots.txt"), "User-agent: *\nDisallow: /private/\nAllow: /private/open.html\n")
	h.site.page(siteURL("/"), `<a href="/private/x.html">x</a><a href="/private/open.html">o</a><a href="/public.html">p</a>`)
	h.site.page(siteURL("/private/x.html"), `secret`)
	h.site.page(siteURL("/private/open.html"), `open`)
	h.site.page(siteURL("/public.html"), `public`)

	result := h.crawl(t, false, false)

	assert.Equal(t, 0, h.site.requestCount(siteURL("/private/x.html")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/private/open.html")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/public.html")))
	assert.True(t, result.Snapshot.RespectRobots)
	assert.Equal(t, 3, result.Snapshot.Pages.Count)
}

func TestStart_DisrespectRobotsSeedsListedPaths(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/robots.txt"), "Disallow: /secret/\nDisallow: /hidden/*.html\nDisallow: /\n")
	h.site.page(siteURL("/"), `<p>nothing linked</p>`)
	h.site.page(siteURL("/secret/"), `<a href="deep.html">d</a>`)
	h.site.page(siteURL("/secret/deep.html"), `deep`)
	h.site.page(siteURL("/hidden/"), `hidden`)

	result := h.crawl(t, false, true)

	assert.Equal(t, 1, h.site.requestCount(siteURL("/")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/secret/")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/secret/deep.html")))
	assert.Equal(t, 1, h.site.requestCount(siteURL("/hidden/")))
	assert.False(t, result.Snapshot.RespectRobots)
	assert.Equal(t, 4, result.Snapshot.Pages.Count)
}

func TestStart_PortScanResultsInSnapshot(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{Scanner: &fakeScanner{ports: []int{443, 80}}})
	h.site.page(siteURL("/"), `<p>home</p>`)

	result := h.crawl(t, true, false)

	assert.True(t, result.Snapshot.PortScan)
	assert.Equal(t, []int{80, 443}, result.Snapshot.OpenPorts)
}

func TestStart_FailuresDoNotBlockQuiescence(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<a href="/down.html">d</a><a href="/missing.html">m</a>`)
	h.site.fail(siteURL("/down.html"), &fetcher.FetchError{
		Message:   "connection reset",
		Retryable: true,
		Cause:     fetcher.ErrCauseNetworkFailure,
	})

	result := h.crawl(t, false, false)

	assert.Equal(t, 1, result.Snapshot.Pages.Count)
	assert.Equal(t, 2, result.Snapshot.FailedFetches)
	assert.Equal(t, StateIdle, h.scheduler.State())
}

func TestStart_BlobWithoutContentLengthIsNotCounted(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<img src="/a.png"><img src="/b.png">`)
	h.site.blob(siteURL("/a.png"), 40)
	h.site.blobWithoutLength(siteURL("/b.png"))

	result := h.crawl(t, false, false)

	assert.Equal(t, stats.ClassTotal{Count: 1, Bytes: 40}, result.Snapshot.Images)
	assert.Equal(t, 1, h.site.requestCount(siteURL("/b.png")))
	assert.Zero(t, result.Snapshot.FailedFetches)
}

func TestStart_DuplicateBodiesCounted(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<a href="/a.html">a</a><a href="/b.html">b</a>`)
	h.site.page(siteURL("/a.html"), `same`)
	h.site.page(siteURL("/b.html"), `same`)

	result := h.crawl(t, false, false)

	assert.Equal(t, 3, result.Snapshot.Pages.Count)
	assert.Equal(t, 1, result.Snapshot.DuplicatePages)
}

func TestShutdown_RejectsNewCrawls(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.scheduler.Shutdown()

	err := h.scheduler.Start(context.Background(), testHost, false, false)
	var crawlErr *CrawlingError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, ErrCauseShutdown, crawlErr.Cause)
}

func TestShutdown_FinalizesRunningCrawl(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	h.site.page(siteURL("/"), `<p>never answered</p>`)
	h.site.gate = make(chan struct{})

	require.NoError(t, h.scheduler.Start(context.Background(), testHost, false, false))
	h.scheduler.Shutdown()

	assert.Equal(t, StateIdle, h.scheduler.State())
	assert.Equal(t, 1, h.completions.count())
	result, ok := h.scheduler.LastResult()
	require.True(t, ok)
	assert.Equal(t, 1, result.Snapshot.FailedFetches)
}

func TestWaitIdle_ReturnsImmediatelyWhenIdle(t *testing.T) {
	h := newHarness(t, testConfig(t), Deps{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, h.scheduler.WaitIdle(ctx))

	_, ok := h.scheduler.LastResult()
	assert.False(t, ok)
}
