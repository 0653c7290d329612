package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/fileutil"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities

- Find embedded resources and hyperlinks in raw page text
- Classify resources by file extension
- Resolve every reference into a normalized absolute URL

Link discovery is pattern-based on purpose: references inside scripts,
comments and inline styles count as much as markup does. No DOM is built
for discovery. Title lookup is the only DOM read and does not affect which
links are returned.

Skipped references (unsupported schemes, malformed URLs) are recorded and
never fail the extraction.
*/

var anchorPattern = regexp.MustCompile(`(?i)<a\b[^>]*?\bhref\s*=\s*["']([^"']*)["']`)

type LinkExtractor struct {
	metadataSink    metadata.MetadataSink
	resourcePattern *regexp.Regexp
	kinds           map[string]linkKind
}

func NewLinkExtractor(metadataSink metadata.MetadataSink, exts Extensions) (*LinkExtractor, error) {
	kinds := map[string]linkKind{}
	register := func(list []string, kind linkKind) error {
		for _, e := range list {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e == "" || strings.ContainsAny(e, `/?#"' `) {
				return &ExtractionError{
					Message:   fmt.Sprintf("invalid extension %q", e),
					Retryable: false,
					Cause:     ErrCauseInvalidExtension,
				}
			}
			if existing, ok := kinds[e]; ok && existing != kind {
				return &ExtractionError{
					Message:   fmt.Sprintf("extension %q assigned to two classes", e),
					Retryable: false,
					Cause:     ErrCauseInvalidExtension,
				}
			}
			kinds[e] = kind
		}
		return nil
	}
	if err := register(exts.Images, kindImage); err != nil {
		return nil, err
	}
	if err := register(exts.Videos, kindVideo); err != nil {
		return nil, err
	}
	if err := register(exts.Documents, kindDocument); err != nil {
		return nil, err
	}

	return &LinkExtractor{
		metadataSink:    metadataSink,
		resourcePattern: buildResourcePattern(kinds),
		kinds:           kinds,
	}, nil
}

// buildResourcePattern matches a quoted string ending in one of the
// extensions, optionally followed by a query string.
func buildResourcePattern(kinds map[string]linkKind) *regexp.Regexp {
	if len(kinds) == 0 {
		return nil
	}
	alts := make([]string, 0, len(kinds))
	for e := range kinds {
		alts = append(alts, regexp.QuoteMeta(e))
	}
	// longest first so "docx" is tried before "doc"
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	return regexp.MustCompile(`(?i)["']([^"'<>\s]+?\.(?:` + strings.Join(alts, "|") + `)(?:\?[^"'<>\s]*)?)["']`)
}

// Extract returns the resources and hyperlinks referenced by body, resolved
// against pageURL.
func (e *LinkExtractor) Extract(pageURL urlutil.URL, body []byte) Links {
	text := string(body)
	sets := map[linkKind]*orderedSet{
		kindImage:     newOrderedSet(),
		kindVideo:     newOrderedSet(),
		kindDocument:  newOrderedSet(),
		kindHyperlink: newOrderedSet(),
	}

	if e.resourcePattern != nil {
		for _, m := range e.resourcePattern.FindAllStringSubmatch(text, -1) {
			ref := html.UnescapeString(m[1])
			kind, ok := e.classify(ref)
			if !ok {
				continue
			}
			if u, ok := e.resolve(ref, pageURL); ok {
				sets[kind].add(u)
			}
		}
	}

	for _, m := range anchorPattern.FindAllStringSubmatch(text, -1) {
		ref := html.UnescapeString(m[1])
		if _, isResource := e.classify(ref); isResource {
			continue
		}
		if u, ok := e.resolve(ref, pageURL); ok {
			sets[kindHyperlink].add(u)
		}
	}

	return Links{
		Images:     sets[kindImage].items,
		Videos:     sets[kindVideo].items,
		Documents:  sets[kindDocument].items,
		Hyperlinks: sets[kindHyperlink].items,
	}
}

// Title returns the trimmed text of the first <title> element, or "".
func (e *LinkExtractor) Title(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		extractionErr := &ExtractionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseUnparsableHTML,
		}
		e.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"LinkExtractor.Title",
			mapExtractionErrorToMetadataCause(extractionErr),
			extractionErr.Error(),
			nil,
		)
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

func (e *LinkExtractor) classify(ref string) (linkKind, bool) {
	kind, ok := e.kinds[fileutil.GetFileExtension(pathOf(ref))]
	return kind, ok
}

// pathOf strips scheme, authority, query and fragment from a reference.
func pathOf(ref string) string {
	p := ref
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.Index(p, "//"); i >= 0 && !strings.Contains(p[:i], "/") {
		rest := p[i+2:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return rest[j:]
		}
		return ""
	}
	return p
}

func (e *LinkExtractor) resolve(ref string, pageURL urlutil.URL) (urlutil.URL, bool) {
	u, err := urlutil.Absolutize(ref, pageURL)
	if err == nil {
		return u, true
	}

	reason := metadata.SkipMalformed
	if urlutil.IsUnsupportedScheme(err) {
		reason = metadata.SkipUnsupportedScheme
	}
	e.metadataSink.RecordSkip(reason, ref, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrReferer, pageURL.String()),
	})
	return urlutil.URL{}, false
}
