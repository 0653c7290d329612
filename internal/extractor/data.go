package extractor

import (
	"github.com/rohmanhakim/site-crawler/internal/frontier"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

// Extensions lists, per resource class, the file extensions (without dot,
// case-insensitive) that classify a quoted reference.
type Extensions struct {
	Images    []string
	Videos    []string
	Documents []string
}

// Links holds the references found on one page, each list in order of first
// appearance and free of duplicates.
type Links struct {
	Images     []urlutil.URL
	Videos     []urlutil.URL
	Documents  []urlutil.URL
	Hyperlinks []urlutil.URL
}

func (l Links) Total() int {
	return len(l.Images) + len(l.Videos) + len(l.Documents) + len(l.Hyperlinks)
}

type linkKind int

const (
	kindImage linkKind = iota
	kindVideo
	kindDocument
	kindHyperlink
)

// orderedSet keeps the first-seen order of distinct URLs.
type orderedSet struct {
	seen  frontier.Set[string]
	items []urlutil.URL
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: frontier.NewSet[string]()}
}

func (o *orderedSet) add(u urlutil.URL) {
	if o.seen.TryAdd(u.String()) {
		o.items = append(o.items, u)
	}
}
