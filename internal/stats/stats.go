package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/frontier"
	"github.com/rohmanhakim/site-crawler/pkg/hashutil"
)

// Class is the resource class a fetched URL is counted under.
type Class int

const (
	ClassPage Class = iota
	ClassImage
	ClassVideo
	ClassDocument
)

func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassVideo:
		return "video"
	case ClassDocument:
		return "document"
	default:
		return "page"
	}
}

// IsBlob reports whether the class is fetched with HEAD only.
func (c Class) IsBlob() bool {
	return c != ClassPage
}

// ClassTotal is the count and summed byte size of one class.
type ClassTotal struct {
	Count int
	Bytes int64
}

/*
Collector holds the statistics of one crawl.

Every counter only grows while the crawl runs; Reset returns all of them to
zero at once. All methods are safe for concurrent use.
*/
type Collector struct {
	mu sync.Mutex

	host            string
	respectRobots   bool
	portScan        bool
	startedAt       time.Time
	title           string
	totals          map[Class]ClassTotal
	internalLinks   int
	externalLinks   int
	externalDomains frontier.Set[string]
	rttSum          time.Duration
	rttCount        int
	openPorts       []int
	failedFetches   int
	duplicatePages  int
	pageDigests     frontier.Set[hashutil.Digest]
}

func NewCollector() *Collector {
	c := &Collector{}
	c.resetLocked()
	return c
}

// Begin resets the collector and records the crawl parameters.
func (c *Collector) Begin(host string, respectRobots, portScan bool, startedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.host = host
	c.respectRobots = respectRobots
	c.portScan = portScan
	c.startedAt = startedAt
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// AddResource counts one successfully fetched resource of the given class.
func (c *Collector) AddResource(class Class, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.totals[class]
	t.Count++
	t.Bytes += bytes
	c.totals[class] = t
}

// AddInternalPage counts an internal page and reports whether its body was
// already seen under another URL in this crawl.
func (c *Collector) AddInternalPage(bytes int64, body []byte) bool {
	digest, _ := hashutil.Sum(body, hashutil.HashAlgoBLAKE3)

	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.totals[ClassPage]
	t.Count++
	t.Bytes += bytes
	c.totals[ClassPage] = t
	c.internalLinks++

	if c.pageDigests.TryAdd(digest) {
		return false
	}
	c.duplicatePages++
	return true
}

func (c *Collector) AddExternalLink(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.externalLinks++
	c.externalDomains.Add(domain)
}

// AddRTT folds one sample into the streaming mean.
func (c *Collector) AddRTT(rtt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rttSum += rtt
	c.rttCount++
}

func (c *Collector) AddFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedFetches++
}

func (c *Collector) SetOpenPorts(ports []int) {
	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.openPorts = sorted
}

func (c *Collector) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// Snapshot returns a consistent copy of the current values.
func (c *Collector) Snapshot(finishedAt time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	domains := make([]string, 0, c.externalDomains.Size())
	for d := range c.externalDomains {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var avg time.Duration
	if c.rttCount > 0 {
		avg = c.rttSum / time.Duration(c.rttCount)
	}

	return Snapshot{
		Host:            c.host,
		RespectRobots:   c.respectRobots,
		PortScan:        c.portScan,
		StartedAt:       c.startedAt,
		FinishedAt:      finishedAt,
		Title:           c.title,
		Pages:           c.totals[ClassPage],
		Images:          c.totals[ClassImage],
		Videos:          c.totals[ClassVideo],
		Documents:       c.totals[ClassDocument],
		InternalLinks:   c.internalLinks,
		ExternalLinks:   c.externalLinks,
		ExternalDomains: domains,
		AverageRTT:      avg,
		RTTSamples:      c.rttCount,
		OpenPorts:       append([]int(nil), c.openPorts...),
		FailedFetches:   c.failedFetches,
		DuplicatePages:  c.duplicatePages,
	}
}

func (c *Collector) resetLocked() {
	c.host = ""
	c.respectRobots = false
	c.portScan = false
	c.startedAt = time.Time{}
	c.title = ""
	c.totals = map[Class]ClassTotal{}
	c.internalLinks = 0
	c.externalLinks = 0
	c.externalDomains = frontier.NewSet[string]()
	c.rttSum = 0
	c.rttCount = 0
	c.openPorts = nil
	c.failedFetches = 0
	c.duplicatePages = 0
	c.pageDigests = frontier.NewSet[hashutil.Digest]()
}
