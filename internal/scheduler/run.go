package scheduler

import (
	"strings"

	"github.com/rohmanhakim/site-crawler/internal/frontier"
	"github.com/rohmanhakim/site-crawler/internal/robots"
	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

// crawlRun is the crawl-scoped state. A new one is built by every Start and
// dropped when the crawl finishes; tasks hold the run they were created for.
type crawlRun struct {
	base          urlutil.URL
	respectRobots bool
	robot         *robots.Robot
	visited       *frontier.VisitedSet
	stats         *stats.Collector
}

func newCrawlRun(base urlutil.URL, respectRobots bool) *crawlRun {
	return &crawlRun{
		base:          base,
		respectRobots: respectRobots,
		visited:       frontier.NewVisitedSet(),
		stats:         stats.NewCollector(),
	}
}

func (r *crawlRun) host() string {
	return r.base.Host()
}

// isInternal reports whether u is on the crawl target host.
func (r *crawlRun) isInternal(u urlutil.URL) bool {
	return strings.EqualFold(u.Host(), r.base.Host())
}

// isRoot reports whether u is the crawl target's root page on any scheme.
func (r *crawlRun) isRoot(u urlutil.URL) bool {
	return r.isInternal(u) && (u.Path() == "/" || u.Path() == r.base.Path())
}
