package startup_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/notify"
	"github.com/omarluq/storefront/internal/startup"
	"github.com/omarluq/storefront/internal/store"
	"github.com/omarluq/storefront/internal/web"
)

func testConfig(env string) *config.Config {
	cfg := &config.Config{Environment: env, CatalogBaseURL: "http://catalog.local:5101"}
	cfg.Identity.SeedDemoUser = true
	if env != config.EnvDevelopment {
		cfg.Identity.SigningKey = strings.Repeat("s", 32)
	}
	cfg.ApplyDefaults()
	return cfg
}

func configured(t *testing.T, env string) *startup.Startup {
	t.Helper()
	return configuredWith(t, testConfig(env))
}

func configuredWith(t *testing.T, cfg *config.Config) *startup.Startup {
	t.Helper()
	s := startup.New(cfg, zerolog.Nop())
	require.NoError(t, s.ConfigureServices(context.Background(), di.NewServiceCollection()))
	t.Cleanup(func() { _ = s.Container().Shutdown() })
	require.NoError(t, s.Configure(web.NewPipeline()))
	return s
}

func TestLifecycleTransitions(t *testing.T) {
	t.Parallel()

	s := startup.New(testConfig(config.EnvDevelopment), zerolog.Nop())
	assert.Equal(t, startup.Unconfigured, s.State())
	require.ErrorIs(t, s.Configure(web.NewPipeline()), startup.ErrInvalidTransition)

	require.NoError(t, s.ConfigureServices(context.Background(), di.NewServiceCollection()))
	t.Cleanup(func() { _ = s.Container().Shutdown() })
	assert.Equal(t, startup.ServicesConfigured, s.State())
	require.ErrorIs(t, s.ConfigureServices(context.Background(), di.NewServiceCollection()), startup.ErrInvalidTransition)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.ErrorIs(t, s.Serve(context.Background(), ln), startup.ErrInvalidTransition)

	require.NoError(t, s.Configure(web.NewPipeline()))
	assert.Equal(t, startup.PipelineConfigured, s.State())
	require.ErrorIs(t, s.Configure(web.NewPipeline()), startup.ErrInvalidTransition)
	assert.Equal(t, "PipelineConfigured", s.State().String())
}

func TestCatalogBaseURLIsFatal(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "catalog.local", "ftp://catalog.local", "http://"} {
		cfg := testConfig(config.EnvDevelopment)
		cfg.CatalogBaseURL = raw
		s := startup.New(cfg, zerolog.Nop())

		err := s.ConfigureServices(context.Background(), di.NewServiceCollection())
		require.ErrorIs(t, err, config.ErrCatalogBaseURL, raw)
		assert.Equal(t, startup.Unconfigured, s.State())
		assert.Nil(t, s.Container())
	}
}

func TestUnreachableStoreIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.EnvDevelopment)
	cfg.ConnectionStrings.CatalogConnection = "postgres://nobody@127.0.0.1:1/catalog?sslmode=disable&connect_timeout=1"
	s := startup.New(cfg, zerolog.Nop())

	err := s.ConfigureServices(context.Background(), di.NewServiceCollection())
	require.Error(t, err)
	assert.Equal(t, startup.Unconfigured, s.State())
}

func TestResolutionReturnsDeclaredImplementation(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)
	reg := s.Registry()

	cases := map[string]string{
		di.TypeName[identity.UserStore]():             di.TypeName[*identity.SQLUserStore](),
		di.TypeName[notify.EmailSender]():             di.TypeName[*notify.LogEmailSender](),
		di.TypeName[store.Repository[basket.Basket]](): di.TypeName[*store.EntityRepository[basket.Basket]](),
		di.TypeName[identity.Authenticator]():         di.TypeName[*identity.ChainAuthenticator](),
	}
	for service, impl := range cases {
		d, ok := reg.Lookup(service)
		require.True(t, ok, service)
		assert.Equal(t, impl, d.ImplementationType, service)
	}

	scope := s.Container().NewScope()
	defer func() { _ = scope.Close() }()
	users, err := di.Resolve[identity.UserStore](scope.Injector())
	require.NoError(t, err)
	assert.IsType(t, &identity.SQLUserStore{}, users)

	sender, err := di.Resolve[notify.EmailSender](scope.Injector())
	require.NoError(t, err)
	assert.IsType(t, &notify.LogEmailSender{}, sender)

	outbox, err := di.Resolve[*notify.Outbox](scope.Injector())
	require.NoError(t, err)
	assert.Same(t, outbox, di.MustResolve[*notify.Outbox](scope.Injector()))
}

func TestCatalogServiceBoundOnce(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)

	name := di.TypeName[catalog.Service]()
	n := 0
	for _, d := range s.Registry().Descriptors() {
		if d.ServiceType == name {
			n++
			assert.Equal(t, di.Singleton, d.Lifetime)
			assert.Empty(t, d.ImplementationType)
		}
	}
	assert.Equal(t, 1, n)

	svc, err := di.ResolveRoot[catalog.Service](s.Container())
	require.NoError(t, err)
	assert.IsType(t, &catalog.RemoteService{}, svc)
}

func TestSingletonsAreShared(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)
	c := s.Container()

	a, err := di.ResolveRoot[*identity.CookieManager](c)
	require.NoError(t, err)
	b, err := di.ResolveRoot[*identity.CookieManager](c)
	require.NoError(t, err)
	assert.Same(t, a, b)

	scope := c.NewScope()
	defer func() { _ = scope.Close() }()
	fromScope := di.MustResolve[*identity.CookieManager](scope.Injector())
	assert.Same(t, a, fromScope)

	svc1 := di.MustResolve[catalog.Service](scope.Injector())
	svc2, err := di.ResolveRoot[catalog.Service](c)
	require.NoError(t, err)
	assert.Same(t, svc1, svc2)
}

func TestScopedPerRequest(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)
	c := s.Container()

	first := c.NewScope()
	defer func() { _ = first.Close() }()
	second := c.NewScope()
	defer func() { _ = second.Close() }()

	a1 := di.MustResolve[*basket.Service](first.Injector())
	a2 := di.MustResolve[*basket.Service](first.Injector())
	b1 := di.MustResolve[*basket.Service](second.Injector())
	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)

	_, err := di.ResolveRoot[*basket.Service](c)
	require.ErrorIs(t, err, di.ErrScopedFromRoot)
}

func TestAllServicesListsEveryRegistration(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, startup.AllServicesPath, http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>All Services</h1>")
	assert.Contains(t, body, "<th>Type</th><th>Lifetime</th><th>Instance</th>")
	assert.Equal(t, s.Registry().Len(), strings.Count(body, "<tr><td>"))
	assert.Contains(t, body, "<td>Scoped</td>")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, startup.AllServicesPath, http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProductionPipeline(t *testing.T) {
	t.Parallel()

	s := startup.New(testConfig(config.EnvProduction), zerolog.Nop())
	require.NoError(t, s.ConfigureServices(context.Background(), di.NewServiceCollection()))
	t.Cleanup(func() { _ = s.Container().Shutdown() })

	p := web.NewPipeline()
	require.NoError(t, s.Configure(p))
	assert.True(t, p.Has("exception handler"))
	assert.True(t, p.Has("hsts"))
	assert.False(t, p.Has("map "+startup.AllServicesPath))
	assert.False(t, p.Has("developer exception page"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, startup.AllServicesPath, http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "All Services")
}

func TestDevelopmentPipelineOrder(t *testing.T) {
	t.Parallel()

	s := startup.New(testConfig(config.EnvDevelopment), zerolog.Nop())
	require.NoError(t, s.ConfigureServices(context.Background(), di.NewServiceCollection()))
	t.Cleanup(func() { _ = s.Container().Shutdown() })

	p := web.NewPipeline()
	require.NoError(t, s.Configure(p))
	assert.Equal(t, []string{
		"logger", "request id", "request logging", "metrics", "context accessor", "request scope",
		"developer exception page", "map /allservices", "database error page",
		"https redirection", "authentication", "router", "actuators",
	}, p.Stages())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actuator/health", http.NoBody))
	assert.NotEqual(t, http.StatusNotFound, rec.Code, "actuator endpoints sit behind the router")
	assert.Contains(t, rec.Body.String(), `"status"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthCookieIsHttpOnlyWithSlidingHour(t *testing.T) {
	t.Parallel()
	s := configured(t, config.EnvDevelopment)

	form := url.Values{"email": {"demouser@microsoft.com"}, "password": {config.DefaultDemoPassword}}
	req := httptest.NewRequest(http.MethodPost, "/Account/Signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	var auth *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == config.DefaultCookieName {
			auth = c
		}
	}
	require.NotNil(t, auth)
	assert.True(t, auth.HttpOnly)
	assert.Equal(t, 3600, auth.MaxAge)
	assert.Equal(t, "/", auth.Path)

	cookies, err := di.ResolveRoot[*identity.CookieManager](s.Container())
	require.NoError(t, err)
	opts := cookies.Options()
	assert.True(t, opts.SlidingExpiration)
	assert.Equal(t, time.Hour, opts.ExpireTimeSpan)
	assert.Equal(t, "/Account/Signin", opts.LoginPath)
	assert.Equal(t, "/Account/Signout", opts.LogoutPath)
	assert.True(t, opts.Essential)
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg := testConfig(config.EnvDevelopment)
	cfg.CatalogBaseURL = "http://" + ln.Addr().String()
	s := configuredWith(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/Catalog/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, startup.Running, s.State())

	resp, err := http.Get(base + "/actuator/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"UP"`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCatalogPagesReadThroughCatalogAPI(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/catalog/items":
			_, _ = io.WriteString(w, `{"count":1,"items":[{"id":1,"name":"Remote Mug","price":8.5,"catalogBrandId":1,"catalogTypeId":1}]}`)
		case "/api/catalog/brands":
			_, _ = io.WriteString(w, `[{"id":1,"brand":"Remote Brand"}]`)
		case "/api/catalog/types":
			_, _ = io.WriteString(w, `[{"id":1,"type":"Mug"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	cfg := testConfig(config.EnvDevelopment)
	cfg.CatalogBaseURL = api.URL
	s := configuredWith(t, cfg)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/Catalog?brand=1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Remote Mug")
	assert.Contains(t, string(body), "Remote Brand")
	assert.Equal(t, int32(3), hits.Load(), "items, brands and types come from the catalog API")

	resp, err = http.Get(srv.URL + "/Catalog?brand=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), hits.Load(), "repeat reads are served from the cache")
}
