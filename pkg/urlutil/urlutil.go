package urlutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

var (
	absoluteURLPattern = regexp.MustCompile(`^(?i)(https?)://([^/:?#\s@]+)(?::(\d{1,5}))?([/?][^#\s]*)?(#.*)?$`)
	schemePattern      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// URL is the crawler's absolute URL model: protocol, host, port and path.
// The path always starts with "/" and may carry a query string.
type URL struct {
	protocol string
	host     string
	port     int
	path     string
}

func (u URL) Protocol() string {
	return u.protocol
}

func (u URL) Host() string {
	return u.host
}

func (u URL) Port() int {
	return u.port
}

func (u URL) Path() string {
	return u.path
}

func (u URL) IsHTTPS() bool {
	return u.protocol == SchemeHTTPS
}

// SetPath returns a copy of u whose path is p, prefixed with "/" if needed.
func (u URL) SetPath(p string) URL {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.path = p
	return u
}

// HostPort returns "host:port", suitable for dialing.
func (u URL) HostPort() string {
	return u.host + ":" + strconv.Itoa(u.port)
}

// Origin returns "scheme://host:port".
func (u URL) Origin() string {
	return u.protocol + "://" + u.HostPort()
}

// String renders the canonical "scheme://host:port/path" form.
func (u URL) String() string {
	return u.Origin() + u.path
}

// Dir returns the path up to and including its last "/", query excluded.
func (u URL) Dir() string {
	p := u.path
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p[:strings.LastIndexByte(p, '/')+1]
}

// Parse parses an absolute http or https URL. The scheme and host are
// lower-cased, the port defaults to 80 or 443, the path defaults to "/" and a
// fragment is dropped.
func Parse(raw string) (URL, error) {
	trimmed := strings.TrimSpace(raw)
	m := absoluteURLPattern.FindStringSubmatch(trimmed)
	if m == nil || hasUnsafeRune(trimmed) {
		return URL{}, &URLError{
			Message: fmt.Sprintf("cannot parse %q", raw),
			Cause:   ErrCauseMalformedURL,
		}
	}

	u := URL{
		protocol: strings.ToLower(m[1]),
		host:     strings.ToLower(m[2]),
		path:     m[4],
	}

	switch {
	case m[3] != "":
		port, err := strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return URL{}, &URLError{
				Message: fmt.Sprintf("invalid port in %q", raw),
				Cause:   ErrCauseMalformedURL,
			}
		}
		u.port = port
	case u.protocol == SchemeHTTPS:
		u.port = 443
	default:
		u.port = 80
	}

	if u.path == "" || u.path[0] == '?' {
		u.path = "/" + u.path
	}
	return u, nil
}

// Normalize parses raw and resolves dot segments in its path.
// Normalize is idempotent: Normalize(Normalize(x).String()) == Normalize(x).
func Normalize(raw string) (URL, error) {
	u, err := Parse(raw)
	if err != nil {
		return URL{}, err
	}
	u.path = resolveDotSegments(u.path)
	return u, nil
}

// CanonicalKey returns the string form used to de-duplicate URLs.
func CanonicalKey(raw string) (string, error) {
	u, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Absolutize resolves ref found on page into a normalized absolute URL.
//   - absolute http(s) references are taken as they are
//   - "//host/x" takes the page's scheme
//   - "/x" resolves against the page origin
//   - "?q" replaces the page query
//   - anything else resolves against the page directory
//
// References with any other scheme fail with ErrCauseUnsupportedScheme;
// references containing whitespace or control characters fail with
// ErrCauseMalformedURL.
func Absolutize(ref string, page URL) (URL, error) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}
	if hasUnsafeRune(ref) {
		return URL{}, &URLError{
			Message: fmt.Sprintf("whitespace or control character in %q", ref),
			Cause:   ErrCauseMalformedURL,
		}
	}

	lower := strings.ToLower(ref)
	switch {
	case ref == "":
		return page, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Normalize(ref)
	case strings.HasPrefix(ref, "//"):
		return Normalize(page.protocol + ":" + ref)
	case schemePattern.MatchString(ref):
		return URL{}, &URLError{
			Message: fmt.Sprintf("unsupported scheme in %q", ref),
			Cause:   ErrCauseUnsupportedScheme,
		}
	case strings.HasPrefix(ref, "/"):
		return normalizePath(page, ref), nil
	case strings.HasPrefix(ref, "?"):
		p := page.path
		if i := strings.IndexByte(p, '?'); i >= 0 {
			p = p[:i]
		}
		return normalizePath(page, p+ref), nil
	default:
		return normalizePath(page, page.Dir()+ref), nil
	}
}

// FixHost turns operator input such as "example.com" or "example.com\docs"
// into an absolute URL string with a path.
func FixHost(host string) string {
	host = strings.TrimSpace(strings.ReplaceAll(host, `\`, "/"))
	lower := strings.ToLower(host)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		host = "http://" + host
	}
	rest := host[strings.Index(host, "://")+3:]
	if !strings.Contains(rest, "/") {
		host += "/"
	}
	return host
}

// hasUnsafeRune reports whether s cannot appear in a request line as is.
func hasUnsafeRune(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0
}

func normalizePath(base URL, p string) URL {
	u := base.SetPath(p)
	u.path = resolveDotSegments(u.path)
	return u
}

// resolveDotSegments removes "." and ".." segments from an absolute path.
// A ".." with no preceding segment is dropped. The query is left untouched.
func resolveDotSegments(p string) string {
	query := ""
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p, query = p[:i], p[i:]
	}

	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	out := make([]string, 0, len(segments))
	trailingDir := false

	for i, seg := range segments {
		last := i == len(segments)-1
		switch seg {
		case ".":
			trailingDir = last
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			trailingDir = last
		default:
			out = append(out, seg)
		}
	}

	if trailingDir && len(out) > 0 && out[len(out)-1] != "" {
		out = append(out, "")
	}

	return "/" + strings.Join(out, "/") + query
}
