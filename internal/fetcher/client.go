package fetcher

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httputil"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

var statusLinePattern = regexp.MustCompile(`^(HTTP/1\.[01]) ([0-9]{3})(?: (.*))?$`)

type ClientParam struct {
	Timeout      time.Duration
	UserAgent    string
	HTTPVersion  string
	MaxBodyBytes int64
}

type WireClient struct {
	metadataSink metadata.MetadataSink
	param        ClientParam
	tlsConfig    *tls.Config
}

func NewWireClient(metadataSink metadata.MetadataSink, param ClientParam) *WireClient {
	return &WireClient{
		metadataSink: metadataSink,
		param:        param,
	}
}

// WithTLSConfig sets the base TLS configuration for https requests.
// ServerName is always overridden with the request host.
func (c *WireClient) WithTLSConfig(cfg *tls.Config) *WireClient {
	c.tlsConfig = cfg
	return c
}

func (c *WireClient) Do(ctx context.Context, req Request) (Response, failure.ClassifiedError) {
	callerMethod := "WireClient.Do"

	resp, err := c.do(ctx, req)
	if err != nil {
		c.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, req.url.String()),
				metadata.NewAttr(metadata.AttrMethod, string(req.method)),
			},
		)
		return Response{}, err
	}

	c.metadataSink.RecordFetch(
		req.url.String(),
		string(req.method),
		resp.code,
		resp.rtt,
		resp.ContentLength(),
		0,
	)
	return resp, nil
}

func (c *WireClient) do(ctx context.Context, req Request) (Response, *FetchError) {
	dialer := &net.Dialer{Timeout: c.param.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", req.url.HostPort())
	if err != nil {
		return Response{}, classifyNetError(ctx, "dial", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.param.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, classifyNetError(ctx, "set deadline", err)
	}
	stop := context.AfterFunc(ctx, func() {
		// unblock pending reads and writes
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	stream := conn
	if req.url.IsHTTPS() {
		cfg := &tls.Config{}
		if c.tlsConfig != nil {
			cfg = c.tlsConfig.Clone()
		}
		cfg.ServerName = req.url.Host()
		stream = tls.Client(conn, cfg)
	}

	startedAt := time.Now()

	if err := c.writeRequest(stream, req); err != nil {
		return Response{}, classifyNetError(ctx, "write request", err)
	}

	resp, fetchErr := c.readResponse(ctx, bufio.NewReader(stream), req.method)
	if fetchErr != nil {
		return Response{}, fetchErr
	}
	resp.rtt = time.Since(startedAt)
	return resp, nil
}

func (c *WireClient) writeRequest(w io.Writer, req Request) error {
	version := c.param.HTTPVersion
	if version == "" {
		version = "HTTP/1.0"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", req.method, req.url.Path(), version)
	fmt.Fprintf(&b, "host: %s\r\n", hostHeader(req))
	if c.param.UserAgent != "" {
		fmt.Fprintf(&b, "user-agent: %s\r\n", c.param.UserAgent)
	}
	if req.referer != "" {
		fmt.Fprintf(&b, "referer: %s\r\n", req.referer)
	}
	b.WriteString("connection: close\r\n\r\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *WireClient) readResponse(ctx context.Context, r *bufio.Reader, method Method) (Response, *FetchError) {
	statusLine, err := readLine(r)
	if err != nil {
		return Response{}, classifyNetError(ctx, "read status line", err)
	}

	m := statusLinePattern.FindStringSubmatch(statusLine)
	if m == nil {
		return Response{}, &FetchError{
			Message:   fmt.Sprintf("invalid status line %q", statusLine),
			Retryable: false,
			Cause:     ErrCauseMalformedResponse,
		}
	}
	code, _ := strconv.Atoi(m[2])
	resp := Response{
		version: m[1],
		code:    code,
		reason:  m[3],
		headers: map[string]string{},
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return Response{}, classifyNetError(ctx, "read headers", err)
		}
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return Response{}, &FetchError{
				Message:   fmt.Sprintf("invalid header line %q", line),
				Retryable: false,
				Cause:     ErrCauseMalformedResponse,
			}
		}
		resp.headers[strings.ToLower(key)] = strings.TrimSpace(value)
	}

	if method == MethodHead || code == 204 || code == 304 || (code >= 100 && code < 200) {
		return resp, nil
	}

	body, fetchErr := c.readBody(ctx, r, resp.headers)
	if fetchErr != nil {
		return Response{}, fetchErr
	}
	resp.body = body
	return resp, nil
}

func (c *WireClient) readBody(ctx context.Context, r *bufio.Reader, headers map[string]string) ([]byte, *FetchError) {
	limit := c.param.MaxBodyBytes
	if limit <= 0 {
		limit = 10 << 20
	}

	if strings.EqualFold(headers["transfer-encoding"], "chunked") {
		body, err := io.ReadAll(io.LimitReader(httputil.NewChunkedReader(r), limit+1))
		if err != nil {
			return nil, bodyReadError(ctx, err)
		}
		if int64(len(body)) > limit {
			return nil, bodyTooLarge(limit)
		}
		headers["content-length"] = strconv.Itoa(len(body))
		return body, nil
	}

	if raw, ok := headers["content-length"]; ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, &FetchError{
				Message:   fmt.Sprintf("invalid content-length %q", raw),
				Retryable: false,
				Cause:     ErrCauseMalformedResponse,
			}
		}
		if n > limit {
			return nil, bodyTooLarge(limit)
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, bodyReadError(ctx, err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, bodyReadError(ctx, err)
	}
	if int64(len(body)) > limit {
		return nil, bodyTooLarge(limit)
	}
	headers["content-length"] = strconv.Itoa(len(body))
	return body, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.ErrUnexpectedEOF
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hostHeader(req Request) string {
	u := req.url
	if (u.IsHTTPS() && u.Port() == 443) || (!u.IsHTTPS() && u.Port() == 80) {
		return u.Host()
	}
	return u.HostPort()
}

func classifyNetError(ctx context.Context, op string, err error) *FetchError {
	if ctx.Err() != nil {
		return &FetchError{
			Message:   fmt.Sprintf("%s: %v", op, ctx.Err()),
			Retryable: false,
			Cause:     ErrCauseCancelled,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{
			Message:   fmt.Sprintf("%s: %v", op, err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("%s: %v", op, err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func bodyReadError(ctx context.Context, err error) *FetchError {
	classified := classifyNetError(ctx, "read body", err)
	if classified.Cause == ErrCauseNetworkFailure {
		classified.Cause = ErrCauseReadResponseBodyError
	}
	return classified
}

func bodyTooLarge(limit int64) *FetchError {
	return &FetchError{
		Message:   fmt.Sprintf("body exceeds %d bytes", limit),
		Retryable: false,
		Cause:     ErrCauseBodyTooLarge,
	}
}
