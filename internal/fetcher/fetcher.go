package fetcher

import (
	"context"

	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

/*
Responsibilities

- Speak HTTP/1.x directly over a TCP (or TLS) stream
- Apply timeouts and honor context cancellation
- Parse the status line, headers and body of a single response
- Measure the round-trip time

Fetch Semantics

- One request per connection; the socket is always released
- Only 200 and 301 are accepted; other codes still return a Response
- Socket and protocol failures return a *FetchError
- Redirects are never followed here; the caller decides

The fetcher never parses content; it only returns bytes and metadata.
*/
type Fetcher interface {
	Do(ctx context.Context, req Request) (Response, failure.ClassifiedError)
}
