package frontier

import (
	"sync"

	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

/*
VisitedSet Responsibilities
- Remember every normalized URL a crawl has committed to fetch
- Make check-then-insert a single step so that concurrent fetch tasks
  racing on the same URL produce exactly one winner
- Knows nothing about:
	- fetching
	- policy
	- statistics

One VisitedSet lives for exactly one crawl and is discarded at reset.
*/
type VisitedSet struct {
	mu   sync.Mutex
	urls Set[string]
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{
		urls: NewSet[string](),
	}
}

// TryVisit marks u as visited and reports whether this call was the first.
func (v *VisitedSet) TryVisit(u urlutil.URL) bool {
	key := u.String()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.urls.TryAdd(key)
}

func (v *VisitedSet) Contains(u urlutil.URL) bool {
	key := u.String()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.urls.Contains(key)
}

func (v *VisitedSet) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.urls.Size()
}

func (v *VisitedSet) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.urls.Clear()
}
