package robots

import (
	"context"
	"testing"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fetcherMock struct {
	mock.Mock
}

func (m *fetcherMock) Do(ctx context.Context, req fetcher.Request) (fetcher.Response, failure.ClassifiedError) {
	args := m.Called(req.URL().String())
	if err := args.Get(1); err != nil {
		return fetcher.Response{}, err.(failure.ClassifiedError)
	}
	return args.Get(0).(fetcher.Response), nil
}

func mustURL(t *testing.T, raw string) urlutil.URL {
	t.Helper()
	u, err := urlutil.Normalize(raw)
	require.NoError(t, err)
	return u
}

func TestParseRobotsTxt(t *testing.T) {
	content := "User-agent: *\r\n" +
		"Disallow: /private/\r\n" +
		"ALLOW: /private/public.html # comment\n" +
		"disallow:/tmp*\n" +
		"Disallow:\n" +
		"Sitemap: http://example.com/sitemap.xml\n" +
		"# Disallow: /commented\n"

	rules := ParseRobotsTxt(content)

	assert.Equal(t, []string{"/private/public.html"}, rules.Allows)
	assert.Equal(t, []string{"/private/", "/tmp*"}, rules.Disallows)
}

func TestPolicy_AllowOverridesDeny(t *testing.T) {
	policy, err := Compile("example.com", Rules{
		Allows:    []string{"/private/public.html"},
		Disallows: []string{"/private/"},
	})
	require.NoError(t, err)

	d := policy.Decide(mustURL(t, "http://example.com/private/public.html"))
	assert.True(t, d.Allowed)
	assert.Equal(t, AllowedByRobots, d.Reason)

	d = policy.Decide(mustURL(t, "http://example.com/private/secret.html"))
	assert.False(t, d.Allowed)
	assert.Equal(t, DisallowedByRobots, d.Reason)
	assert.Equal(t, "/private/", d.Rule)

	d = policy.Decide(mustURL(t, "http://example.com/open.html"))
	assert.True(t, d.Allowed)
	assert.Equal(t, NoMatchingRules, d.Reason)
}

func TestPolicy_AllowMustMatchWholePath(t *testing.T) {
	policy, err := Compile("example.test", Rules{
		Allows:    []string{"/private"},
		Disallows: []string{"/private/x.html"},
	})
	require.NoError(t, err)

	d := policy.Decide(mustURL(t, "http://example.test/private/x.html"))
	assert.False(t, d.Allowed)
	assert.Equal(t, DisallowedByRobots, d.Reason)
	assert.Equal(t, "/private/x.html", d.Rule)

	d = policy.Decide(mustURL(t, "http://example.test/private"))
	assert.True(t, d.Allowed)
	assert.Equal(t, AllowedByRobots, d.Reason)

	d = policy.Decide(mustURL(t, "http://example.test/private/y.html"))
	assert.True(t, d.Allowed)
	assert.Equal(t, NoMatchingRules, d.Reason)
}

func TestPolicy_Wildcards(t *testing.T) {
	policy, err := Compile("example.com", Rules{
		Allows:    []string{"/docs/*.html$", "/api/v?/"},
		Disallows: []string{"/docs/", "/search*q=", "/exact$", "/api/"},
	})
	require.NoError(t, err)

	tests := []struct {
		url     string
		allowed bool
	}{
		{"http://example.com/docs/a/b.html", true},
		{"http://example.com/docs/a/b.html?x=1", false},
		{"http://example.com/docs/a/b.pdf", false},
		{"http://example.com/search?q=go", false},
		{"http://example.com/searchable", false},
		{"http://example.com/exact", false},
		{"http://example.com/exact/more", true},
		{"http://example.com/api/v?/", true},
		{"http://example.com/api/v?/list", false},
		{"http://example.com/api/v1/list", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.allowed, policy.Decide(mustURL(t, tt.url)).Allowed)
		})
	}
}

func TestPolicy_ExternalHostAlwaysAllowed(t *testing.T) {
	policy, err := Compile("example.com", Rules{Disallows: []string{"/"}})
	require.NoError(t, err)

	d := policy.Decide(mustURL(t, "http://other.org/anything"))
	assert.True(t, d.Allowed)
	assert.Equal(t, ExternalHost, d.Reason)

	assert.False(t, policy.Decide(mustURL(t, "http://example.com/")).Allowed)
}

func TestPolicy_EmptyRules(t *testing.T) {
	policy, err := Compile("example.com", Rules{})
	require.NoError(t, err)
	d := policy.Decide(mustURL(t, "http://example.com/x"))
	assert.True(t, d.Allowed)
	assert.Equal(t, EmptyRuleSet, d.Reason)
}

func TestSeedPaths(t *testing.T) {
	paths := SeedPaths(Rules{
		Allows:    []string{"/public/*.html", "/about$"},
		Disallows: []string{"/private/", "admin", "/public/"},
	})
	assert.Equal(t, []string{"/public/", "/about", "/private/", "/admin"}, paths)
}

func TestRobot_NoPolicyPermitsEverything(t *testing.T) {
	r := NewRobot(&metadata.NoopSink{}, nil)
	assert.False(t, r.Enforcing())

	d := r.Decide(mustURL(t, "http://example.com/private/"))
	assert.True(t, d.Allowed)
	assert.Equal(t, NotEnforced, d.Reason)
}

func TestRobot_DenialIsRecorded(t *testing.T) {
	policy, err := Compile("example.com", Rules{Disallows: []string{"/private/"}})
	require.NoError(t, err)

	r := NewRobot(&metadata.NoopSink{}, policy)
	assert.True(t, r.Enforcing())
	assert.False(t, r.Decide(mustURL(t, "http://example.com/private/x")).Allowed)
}

func TestRobotsFetcher_Fetch(t *testing.T) {
	client := &fetcherMock{}
	client.On("Do", "http://example.com:80/robots.txt").Return(
		fetcher.NewResponseForTest(200, nil, []byte("Disallow: /private/\nAllow: /private/ok"), time.Millisecond),
		nil,
	)

	rules, err := NewRobotsFetcher(&metadata.NoopSink{}, client).Fetch(context.Background(), mustURL(t, "http://example.com/docs/"))
	require.Nil(t, err)
	assert.Equal(t, []string{"/private/ok"}, rules.Allows)
	assert.Equal(t, []string{"/private/"}, rules.Disallows)
	client.AssertExpectations(t)
}

func TestRobotsFetcher_NotFound(t *testing.T) {
	client := &fetcherMock{}
	client.On("Do", "http://example.com:80/robots.txt").Return(
		fetcher.NewResponseForTest(404, nil, nil, time.Millisecond),
		nil,
	)

	_, err := NewRobotsFetcher(&metadata.NoopSink{}, client).Fetch(context.Background(), mustURL(t, "http://example.com/"))
	require.NotNil(t, err)
	assert.Equal(t, ErrCauseNotAvailable, err.Cause)
}

func TestRobotsFetcher_Unreachable(t *testing.T) {
	client := &fetcherMock{}
	client.On("Do", "http://example.com:80/robots.txt").Return(
		fetcher.Response{},
		&fetcher.FetchError{Message: "refused", Retryable: true, Cause: fetcher.ErrCauseNetworkFailure},
	)

	_, err := NewRobotsFetcher(&metadata.NoopSink{}, client).Fetch(context.Background(), mustURL(t, "http://example.com/"))
	require.NotNil(t, err)
	assert.Equal(t, ErrCauseUnreachable, err.Cause)
}
