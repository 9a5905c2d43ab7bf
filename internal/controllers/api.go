package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/store"
	"github.com/omarluq/storefront/internal/web"
)

const maxAPIPageSize = 100

// apiError writes err as JSON.
func apiError(w http.ResponseWriter, r *http.Request, err error) {
	status := web.StatusFor(err)
	if status >= http.StatusInternalServerError {
		web.Error(w, r, err)
		return
	}
	web.WriteJSONError(w, status, http.StatusText(status))
}

func (h *handlers) apiItems(w http.ResponseWriter, r *http.Request) {
	svc, ok := resolve[*catalog.RepositoryService](w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	size := queryInt(q, "pageSize").OrElse(h.settings().CatalogPageSize)
	if size <= 0 || size > maxAPIPageSize {
		web.WriteJSONError(w, http.StatusBadRequest, "pageSize must be between 1 and "+strconv.Itoa(maxAPIPageSize))
		return
	}
	page, err := svc.Items(r.Context(), catalog.Filter{
		BrandID:   queryInt(q, "brandId"),
		TypeID:    queryInt(q, "typeId"),
		PageIndex: queryInt(q, "pageIndex").OrElse(0),
		PageSize:  size,
	})
	if err != nil {
		apiError(w, r, err)
		return
	}
	if page.Items == nil {
		page.Items = []catalog.Item{}
	}
	web.WriteJSON(w, http.StatusOK, page)
}

func (h *handlers) apiItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		apiError(w, r, store.ErrNotFound)
		return
	}
	svc, ok := resolve[*catalog.RepositoryService](w, r)
	if !ok {
		return
	}
	item, err := svc.Item(r.Context(), id)
	if err != nil {
		apiError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, item)
}

func (h *handlers) apiBrands(w http.ResponseWriter, r *http.Request) {
	svc, ok := resolve[*catalog.RepositoryService](w, r)
	if !ok {
		return
	}
	brands, err := svc.Brands(r.Context())
	if err != nil {
		apiError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, brands)
}

func (h *handlers) apiTypes(w http.ResponseWriter, r *http.Request) {
	svc, ok := resolve[*catalog.RepositoryService](w, r)
	if !ok {
		return
	}
	types, err := svc.Types(r.Context())
	if err != nil {
		apiError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, types)
}
