package scheduler

import (
	"context"

	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

// analyzeTask extracts the links of one internal page and submits a fetch
// task for every link not yet visited.
type analyzeTask struct {
	s    *Scheduler
	run  *crawlRun
	page urlutil.URL
	body []byte
}

func (s *Scheduler) newAnalyzeTask(run *crawlRun, page urlutil.URL, body []byte) *analyzeTask {
	s.live.addAnalyze()
	return &analyzeTask{
		s:    s,
		run:  run,
		page: page,
		body: body,
	}
}

func (t *analyzeTask) Run(ctx context.Context) {
	defer t.s.analyzeDone()

	if t.run.isRoot(t.page) {
		if title := t.s.extractor.Title(t.body); title != "" {
			t.run.stats.SetTitle(title)
		}
	}

	links := t.s.extractor.Extract(t.page, t.body)
	referer := t.page.String()

	t.submitAll(links.Images, stats.ClassImage, referer)
	t.submitAll(links.Videos, stats.ClassVideo, referer)
	t.submitAll(links.Documents, stats.ClassDocument, referer)
	t.submitAll(links.Hyperlinks, stats.ClassPage, referer)
}

func (t *analyzeTask) Abort() {
	t.s.releaseAnalyze()
}

func (t *analyzeTask) submitAll(urls []urlutil.URL, class stats.Class, referer string) {
	for _, u := range urls {
		// Best effort only; the fetch task's dedupe step is authoritative.
		if t.run.visited.Contains(u) {
			continue
		}
		t.s.fetchPool.Submit(t.s.newFetchTask(t.run, u, class, referer, 0))
	}
}
