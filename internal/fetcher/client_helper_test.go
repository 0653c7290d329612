package fetcher_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
	"github.com/stretchr/testify/require"
)

// rawServer answers every connection with the same raw bytes and records
// the request head it received.
type rawServer struct {
	listener net.Listener
	requests chan string
}

func newRawServer(t *testing.T, response string) *rawServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &rawServer{
		listener: ln,
		requests: make(chan string, 16),
	}
	go s.serve(response)
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *rawServer) serve(response string) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			r := bufio.NewReader(conn)
			var head strings.Builder
			for {
				line, err := r.ReadString('\n')
				head.WriteString(line)
				if err != nil || line == "\r\n" {
					break
				}
			}
			s.requests <- head.String()
			_, _ = conn.Write([]byte(response))
		}(conn)
	}
}

func (s *rawServer) url(t *testing.T, path string) urlutil.URL {
	t.Helper()
	u, err := urlutil.Parse("http://" + s.listener.Addr().String() + path)
	require.NoError(t, err)
	return u
}

func (s *rawServer) lastRequest(t *testing.T) string {
	t.Helper()
	select {
	case r := <-s.requests:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("server received no request")
		return ""
	}
}

func newTestClient(maxBody int64) *fetcher.WireClient {
	return fetcher.NewWireClient(&metadata.NoopSink{}, fetcher.ClientParam{
		Timeout:      2 * time.Second,
		UserAgent:    "site-crawler-test",
		HTTPVersion:  "HTTP/1.0",
		MaxBodyBytes: maxBody,
	})
}
