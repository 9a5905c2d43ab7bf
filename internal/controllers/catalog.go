package controllers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/web"
)

// CatalogIndex is the model of the catalog page.
type CatalogIndex struct {
	Items       []catalog.Item
	Brands      []catalog.Brand
	Types       []catalog.Type
	PreviousURL string
	NextURL     string
	Count       int
	PageNumber  int
	TotalPages  int
	BrandID     int
	TypeID      int
	HasPrevious bool
	HasNext     bool
}

// queryInt parses a non-negative integer query value.
func queryInt(q url.Values, key string) mo.Option[int] {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 0 {
		return mo.None[int]()
	}
	return mo.Some(n)
}

func pageURL(q url.Values, page int) string {
	next := url.Values{}
	for k, v := range q {
		next[k] = v
	}
	next.Set("page", strconv.Itoa(page))
	return "/Catalog?" + next.Encode()
}

func (h *handlers) catalogIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := resolve[*catalog.CachedService](w, r)
	if !ok {
		return
	}
	uri, ok := resolve[*catalog.URIComposer](w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := catalog.Filter{
		BrandID:   queryInt(q, "brand"),
		TypeID:    queryInt(q, "type"),
		PageIndex: queryInt(q, "page").OrElse(0),
		PageSize:  h.settings().CatalogPageSize,
	}
	// Zero means "all" in the filter form.
	if id, ok := filter.BrandID.Get(); ok && id == 0 {
		filter.BrandID = mo.None[int]()
	}
	if id, ok := filter.TypeID.Get(); ok && id == 0 {
		filter.TypeID = mo.None[int]()
	}

	items, err := svc.Items(r.Context(), filter)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	brands, err := svc.Brands(r.Context())
	if err != nil {
		web.Error(w, r, err)
		return
	}
	types, err := svc.Types(r.Context())
	if err != nil {
		web.Error(w, r, err)
		return
	}

	model := CatalogIndex{
		Items: lo.Map(items.Items, func(it catalog.Item, _ int) catalog.Item {
			it.PictureURI = uri.ComposePicURI(it.PictureURI)
			return it
		}),
		Brands:     brands,
		Types:      types,
		Count:      items.Count,
		PageNumber: items.PageIndex + 1,
		TotalPages: items.TotalPages(),
		BrandID:    filter.BrandID.OrElse(0),
		TypeID:     filter.TypeID.OrElse(0),
	}
	model.HasPrevious = items.PageIndex > 0
	model.HasNext = items.PageIndex+1 < model.TotalPages
	if model.HasPrevious {
		model.PreviousURL = pageURL(q, items.PageIndex-1)
	}
	if model.HasNext {
		model.NextURL = pageURL(q, items.PageIndex+1)
	}
	h.render(w, r, http.StatusOK, "catalog", "Catalog", model)
}

func (h *handlers) catalogError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "error", "Error", struct{ RequestID string }{web.GetRequestID(r.Context())})
}
