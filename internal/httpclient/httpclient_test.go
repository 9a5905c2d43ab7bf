package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/web"
)

type capture struct {
	last atomic.Pointer[http.Request]
	body atomic.Pointer[string]
}

func (c *capture) RoundTrip(r *http.Request) (*http.Response, error) {
	c.last.Store(r)
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		s := string(b)
		c.body.Store(&s)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
}

func TestFactoryRegistration(t *testing.T) {
	t.Parallel()
	f := NewFactory(zerolog.Nop())
	require.NoError(t, f.AddClient("a", Profile{}))
	assert.ErrorIs(t, f.AddClient("a", Profile{}), ErrDuplicateClient)

	_, err := f.Client("missing")
	assert.ErrorIs(t, err, ErrUnknownClient)

	c, err := f.Client("a")
	require.NoError(t, err)
	assert.NotNil(t, c.Transport)
	assert.Equal(t, []string{"a"}, f.Names())
	assert.NoError(t, f.Shutdown())
}

func TestFactoryHandlersRunOutermostFirst(t *testing.T) {
	t.Parallel()
	var order []string
	mark := func(name string) Handler {
		return HandlerFunc(func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		})
	}
	base := &capture{}
	f := NewFactory(zerolog.Nop())
	require.NoError(t, f.AddClient("c", Profile{
		Base:     func() http.RoundTripper { return base },
		Handlers: []Handler{mark("outer"), mark("inner")},
		Timeout:  time.Second,
	}))

	c, err := f.Client("c")
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Timeout)
	resp, err := c.Get("http://catalog/api")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type closeCounter struct {
	capture
	closed atomic.Int32
}

func (c *closeCounter) CloseIdleConnections() { c.closed.Add(1) }

func TestTransportRecycledAfterLifetime(t *testing.T) {
	t.Parallel()
	var built []*closeCounter
	rt := newRotatingTransport(func() http.RoundTripper {
		c := &closeCounter{}
		built = append(built, c)
		return c
	}, 5*time.Minute, zerolog.Nop())

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rt.now = func() time.Time { return now }
	rt.created = now

	req := httptest.NewRequest(http.MethodGet, "http://x/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Len(t, built, 1)

	now = now.Add(4 * time.Minute)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Len(t, built, 1)

	now = now.Add(2 * time.Minute)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	require.Len(t, built, 2)
	assert.Equal(t, int32(1), built[0].closed.Load())
	assert.NotNil(t, built[1].last.Load())
	assert.Equal(t, 1, rt.generation)
}

func TestRequestIDHandler(t *testing.T) {
	t.Parallel()
	base := &capture{}
	rt := NewRequestIDHandler().Wrap(base)

	ctx := web.AddRequestID(context.Background(), "req-42")
	post := httptest.NewRequest(http.MethodPost, "http://catalog/api", strings.NewReader("{}")).WithContext(ctx)
	_, err := rt.RoundTrip(post)
	require.NoError(t, err)
	assert.Equal(t, "req-42", base.last.Load().Header.Get(RequestIDHeaderName))
	assert.Empty(t, post.Header.Get(RequestIDHeaderName))

	put := httptest.NewRequest(http.MethodPut, "http://catalog/api", nil)
	_, err = rt.RoundTrip(put)
	require.NoError(t, err)
	assert.Len(t, base.last.Load().Header.Get(RequestIDHeaderName), 36)

	get := httptest.NewRequest(http.MethodGet, "http://catalog/api", nil).WithContext(ctx)
	_, err = rt.RoundTrip(get)
	require.NoError(t, err)
	assert.Empty(t, base.last.Load().Header.Get(RequestIDHeaderName))
}

func TestForwardAuthorization(t *testing.T) {
	t.Parallel()
	h, err := NewAuthorizationHandler(context.Background(), config.OutboundAuthConfig{})
	require.NoError(t, err)
	assert.Equal(t, config.AuthModeForward, h.Mode())

	base := &capture{}
	rt := h.Wrap(base)

	ctx := identity.WithPrincipal(context.Background(), identity.Principal{UserName: "alice", Token: "tok"})
	_, err = rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://catalog/", nil).WithContext(ctx))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", base.last.Load().Header.Get("Authorization"))

	_, err = rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://catalog/", nil))
	require.NoError(t, err)
	assert.Empty(t, base.last.Load().Header.Get("Authorization"))
}

func TestClientCredentialsAuthorization(t *testing.T) {
	t.Parallel()
	base := &capture{}
	h := NewTokenAuthorizationHandler(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "svc", TokenType: "Bearer"}))

	_, err := h.Wrap(base).RoundTrip(httptest.NewRequest(http.MethodGet, "http://catalog/", nil))
	require.NoError(t, err)
	assert.Equal(t, "Bearer svc", base.last.Load().Header.Get("Authorization"))
}

func TestSigV4Authorization(t *testing.T) {
	t.Parallel()
	h, err := NewAuthorizationHandler(context.Background(), config.OutboundAuthConfig{
		Mode:               config.AuthModeSigV4,
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
	})
	require.NoError(t, err)

	base := &capture{}
	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/items", strings.NewReader(`{"a":1}`))
	_, err = h.Wrap(base).RoundTrip(req)
	require.NoError(t, err)

	signed := base.last.Load()
	assert.True(t, strings.HasPrefix(signed.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/"))
	assert.Contains(t, signed.Header.Get("Authorization"), "/us-east-1/execute-api/aws4_request")
	assert.NotEmpty(t, signed.Header.Get("X-Amz-Date"))
	assert.Equal(t, `{"a":1}`, *base.body.Load())
}

func TestNoneAuthorizationPassesThrough(t *testing.T) {
	t.Parallel()
	h, err := NewAuthorizationHandler(context.Background(), config.OutboundAuthConfig{Mode: config.AuthModeNone})
	require.NoError(t, err)
	base := &capture{}
	ctx := identity.WithPrincipal(context.Background(), identity.Principal{UserName: "alice", Token: "tok"})
	_, err = h.Wrap(base).RoundTrip(httptest.NewRequest(http.MethodGet, "http://x/", nil).WithContext(ctx))
	require.NoError(t, err)
	assert.Empty(t, base.last.Load().Header.Get("Authorization"))
}
