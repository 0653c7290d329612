package fetcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

type Method string

const (
	MethodGet  Method = "GET"
	MethodHead Method = "HEAD"
)

type Request struct {
	method  Method
	url     urlutil.URL
	referer string
}

func NewRequest(method Method, url urlutil.URL, referer string) Request {
	return Request{
		method:  method,
		url:     url,
		referer: referer,
	}
}

func (r Request) Method() Method {
	return r.method
}

func (r Request) URL() urlutil.URL {
	return r.url
}

func (r Request) Referer() string {
	return r.referer
}

// Response is a parsed HTTP response. Header keys are lower-cased.
type Response struct {
	version string
	code    int
	reason  string
	headers map[string]string
	body    []byte
	rtt     time.Duration
}

func (r Response) Version() string {
	return r.version
}

func (r Response) Code() int {
	return r.code
}

func (r Response) Reason() string {
	return r.reason
}

// Header looks up a header by its case-insensitive name.
func (r Response) Header(key string) (string, bool) {
	v, ok := r.headers[strings.ToLower(key)]
	return v, ok
}

func (r Response) Headers() map[string]string {
	headers := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		headers[k] = v
	}
	return headers
}

func (r Response) Body() []byte {
	return r.body
}

// ContentLength is the content-length header value, or 0 when absent or invalid.
func (r Response) ContentLength() int64 {
	v, ok := r.headers["content-length"]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Location is the redirect target, if any.
func (r Response) Location() string {
	return r.headers["location"]
}

// RTT is the wall-clock time from sending the request to reading the full response.
func (r Response) RTT() time.Duration {
	return r.rtt
}

// Accepted reports whether the status code is one the crawler acts on.
func (r Response) Accepted() bool {
	return r.code == StatusOK || r.code == StatusMovedPermanently
}

const (
	StatusOK               = 200
	StatusMovedPermanently = 301
)

// NewResponseForTest creates a Response for testing purposes.
// Header keys are lower-cased like a parsed response.
func NewResponseForTest(code int, headers map[string]string, body []byte, rtt time.Duration) Response {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	return Response{
		version: "HTTP/1.1",
		code:    code,
		headers: lowered,
		body:    body,
		rtt:     rtt,
	}
}
