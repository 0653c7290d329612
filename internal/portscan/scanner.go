package portscan

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
	"golang.org/x/sync/errgroup"
)

// DialFunc opens a TCP connection to address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

/*
Scanner probes a contiguous TCP port range on one host.

A port is open when a TCP connect succeeds within the timeout. Probes run
with bounded concurrency and the scan returns only after every probe has
finished, so callers may treat it as a barrier.
*/
type Scanner struct {
	metadataSink metadata.MetadataSink
	timeout      time.Duration
	concurrency  int
	dial         DialFunc
}

type Option func(*Scanner)

func WithDialFunc(dial DialFunc) Option {
	return func(s *Scanner) {
		s.dial = dial
	}
}

func NewScanner(
	metadataSink metadata.MetadataSink,
	timeout time.Duration,
	concurrency int,
	opts ...Option,
) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Scanner{
		metadataSink: metadataSink,
		timeout:      timeout,
		concurrency:  concurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dial == nil {
		d := &net.Dialer{Timeout: timeout}
		s.dial = d.DialContext
	}
	return s
}

// Scan returns the open ports of host within [start, end], ascending.
func (s *Scanner) Scan(ctx context.Context, host string, start, end int) ([]int, failure.ClassifiedError) {
	open, err := s.scan(ctx, host, start, end)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"portscan",
			"Scanner.Scan",
			mapScanErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrHost, host),
			},
		)
		return nil, err
	}
	return open, nil
}

func (s *Scanner) scan(ctx context.Context, host string, start, end int) ([]int, *ScanError) {
	if start < 1 || end > 65535 || start > end {
		return nil, &ScanError{
			Message:   fmt.Sprintf("%d-%d", start, end),
			Retryable: false,
			Cause:     ErrCauseInvalidRange,
		}
	}

	var (
		mu   sync.Mutex
		open []int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for port := start; port <= end; port++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if s.probe(gctx, host, port) {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &ScanError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseCancelled,
		}
	}

	sort.Ints(open)
	return open, nil
}

func (s *Scanner) probe(ctx context.Context, host string, port int) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(probeCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
