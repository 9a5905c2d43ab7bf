package controllers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/web"
)

//go:embed views/*.html
var viewFS embed.FS

var funcs = template.FuncMap{
	"price":     func(v float64) string { return fmt.Sprintf("$ %.2f", v) },
	"lineTotal": func(price float64, n int) float64 { return price * float64(n) },
	"date":      func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}

func view(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(viewFS, "views/layout.html", "views/"+name+".html"))
}

var views = map[string]*template.Template{
	"catalog":  view("catalog"),
	"error":    view("error"),
	"basket":   view("basket"),
	"success":  view("success"),
	"myorders": view("myorders"),
	"detail":   view("detail"),
	"signin":   view("signin"),
	"register": view("register"),
}

// page is the layout model.
type page struct {
	Model       any
	User        identity.Principal
	Title       string
	SiteName    string
	BasketCount int
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, status int, name, title string, model any) {
	p := page{
		Title:    title,
		SiteName: h.settings().SiteName,
		User:     identity.PrincipalFrom(r.Context()),
		Model:    model,
	}
	if baskets, err := di.ResolveCtx[*basket.Service](r.Context()); err == nil {
		if buyer := buyerID(r); buyer != "" {
			n, err := baskets.ItemCount(r.Context(), buyer)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("basket count unavailable")
			}
			p.BasketCount = n
		}
	}
	t := views[name]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", p); err != nil {
		web.Error(w, r, err)
	}
}
