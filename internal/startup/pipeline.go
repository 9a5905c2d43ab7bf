package startup

import (
	"html/template"
	"net/http"

	"github.com/omarluq/storefront/internal/actuator"
	"github.com/omarluq/storefront/internal/controllers"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/metrics"
	"github.com/omarluq/storefront/internal/ratelimit"
	"github.com/omarluq/storefront/internal/web"
)

// AllServicesPath lists the registered services in Development.
const AllServicesPath = "/allservices"

// Configure builds the request pipeline on p. Development gets the
// developer and database error pages and the services listing; other
// environments get the exception handler and HSTS. Requests the router does
// not match fall through to the actuator endpoints.
func (s *Startup) Configure(p *web.Pipeline) error {
	if err := s.require(ServicesConfigured); err != nil {
		return err
	}
	root := s.container.Root()

	m, err := di.Resolve[*metrics.Metrics](root)
	if err != nil {
		return err
	}
	accessor, err := di.Resolve[*web.ContextAccessor](root)
	if err != nil {
		return err
	}
	chain, err := di.Resolve[identity.Authenticator](root)
	if err != nil {
		return err
	}
	cookies, err := di.Resolve[*identity.CookieManager](root)
	if err != nil {
		return err
	}
	limiter, err := di.Resolve[ratelimit.Limiter](root)
	if err != nil {
		return err
	}

	p.Use("logger", web.WithLogger(s.log)).
		Use("request id", web.RequestIDMiddleware()).
		Use("request logging", web.LoggingMiddleware()).
		Use("metrics", m.Middleware).
		Use("context accessor", accessor.Middleware()).
		Use("request scope", web.RequestScope(s.container))

	if s.IsDevelopment() {
		p.Use("developer exception page", web.DeveloperExceptionPage())
		s.ListAllRegisteredServices(p)
		p.Use("database error page", web.DatabaseErrorPage())
	} else {
		p.Use("exception handler", web.ExceptionHandler(controllers.ErrorPath)).
			Use("hsts", web.HSTS(s.cfg.Server.HSTSDuration()))
	}

	p.Use("https redirection", web.HTTPSRedirection(s.cfg.Server.HTTPSPort))
	if dir := s.cfg.Server.StaticDir; dir != "" {
		p.Use("static files", web.StaticFiles(dir))
	}
	p.Use("authentication", web.Authentication(chain, cookies))

	p.Use("router", func(next http.Handler) http.Handler {
		return controllers.NewRouter(controllers.Options{
			SignInLimiter: limiter,
			Metrics:       m,
			Settings:      s.runtime,
			NotFound:      next,
			LoginPath:     identity.LoginPath,
		})
	})
	if s.cfg.Actuators.IsEnabled() {
		act, err := di.Resolve[*actuator.Actuator](root)
		if err != nil {
			return err
		}
		p.Use("actuators", act.Middleware())
	}

	s.handler = p.Build(controllers.NotFoundHandler())
	return s.advance(ServicesConfigured, PipelineConfigured)
}

var allServicesPage = template.Must(template.New("allservices").Parse(`<!DOCTYPE html>
<html>
<head><title>All Services</title></head>
<body>
<h1>All Services</h1>
<table>
<thead><tr><th>Type</th><th>Lifetime</th><th>Instance</th></tr></thead>
<tbody>
{{- range . }}
<tr><td>{{ .ServiceType }}</td><td>{{ .Lifetime }}</td><td>{{ .ImplementationType }}</td></tr>
{{- end }}
</tbody>
</table>
</body>
</html>
`))

// ListAllRegisteredServices maps AllServicesPath to a table with one row per
// registration. It adds nothing outside Development.
func (s *Startup) ListAllRegisteredServices(p *web.Pipeline) {
	if !s.IsDevelopment() {
		return
	}
	registry := s.Registry()
	p.Map(AllServicesPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			web.WriteError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}
		web.Render(w, r, http.StatusOK, allServicesPage, registry.Descriptors())
	}))
}
