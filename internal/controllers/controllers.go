// Package controllers maps the storefront's pages and catalog API onto a
// chi router. Handlers resolve their services from the request scope.
package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/metrics"
	"github.com/omarluq/storefront/internal/ratelimit"
	"github.com/omarluq/storefront/internal/web"
)

// ErrorPath is the page the exception handler re-executes.
const ErrorPath = "/Catalog/Error"

// Options are the process-wide dependencies of the router.
type Options struct {
	// SignInLimiter throttles POST /Account/Signin per client IP. Nil
	// disables throttling.
	SignInLimiter ratelimit.Limiter
	Metrics       *metrics.Metrics
	Settings      config.RuntimeConfig
	// NotFound receives requests no route matches. Nil answers 404.
	NotFound  http.Handler
	LoginPath string
}

// NotFoundHandler answers 404 with the storefront's error body.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		web.WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
}

type handlers struct {
	opts Options
}

func (h *handlers) settings() config.AppSettings {
	if h.opts.Settings == nil {
		return config.AppSettings{SiteName: config.DefaultSiteName, CatalogPageSize: config.DefaultCatalogPageSize}
	}
	return h.opts.Settings.Get().AppSettings
}

// NewRouter builds the storefront routes.
func NewRouter(opts Options) chi.Router {
	if opts.LoginPath == "" {
		opts.LoginPath = identity.LoginPath
	}
	h := &handlers{opts: opts}
	requireUser := web.RequireUser(opts.LoginPath)

	r := chi.NewRouter()
	if opts.NotFound == nil {
		opts.NotFound = NotFoundHandler()
	}
	r.NotFound(opts.NotFound.ServeHTTP)

	r.Get("/", h.catalogIndex)
	r.Route("/Catalog", func(r chi.Router) {
		r.Get("/", h.catalogIndex)
		r.Get("/Error", h.catalogError)
	})

	r.Route("/Basket", func(r chi.Router) {
		r.Get("/", h.basketIndex)
		r.Post("/AddToBasket", h.addToBasket)
		r.Post("/Update", h.updateBasket)
		r.With(requireUser).Post("/Checkout", h.checkout)
		r.With(requireUser).Get("/Success", h.checkoutSuccess)
	})

	r.Route("/Order", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/MyOrders", h.myOrders)
		r.Get("/Detail/{id}", h.orderDetail)
	})

	r.Route("/Account", func(r chi.Router) {
		throttle := func(next http.Handler) http.Handler { return next }
		if opts.SignInLimiter != nil {
			throttle = ratelimit.Middleware(opts.SignInLimiter, ratelimit.ClientIP)
		}
		r.Get("/Signin", h.signinForm)
		r.With(throttle).Post("/Signin", h.signin)
		r.Get("/Signout", h.signout)
		r.Post("/Signout", h.signout)
		r.Get("/Register", h.registerForm)
		r.Post("/Register", h.register)
		r.With(throttle).Post("/Token", h.token)
	})

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/items", h.apiItems)
		r.Get("/items/{id}", h.apiItem)
		r.Get("/brands", h.apiBrands)
		r.Get("/types", h.apiTypes)
	})
	return r
}

// resolve returns T from the request scope, reporting a failure as a
// server error.
func resolve[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	v, err := di.ResolveCtx[T](r.Context())
	if err != nil {
		web.Error(w, r, err)
		return v, false
	}
	return v, true
}
