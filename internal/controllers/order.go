package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/order"
	"github.com/omarluq/storefront/internal/store"
	"github.com/omarluq/storefront/internal/web"
)

func (h *handlers) myOrders(w http.ResponseWriter, r *http.Request) {
	ordering, ok := resolve[*order.OrderingService](w, r)
	if !ok {
		return
	}
	orders, err := ordering.MyOrders(r.Context(), identity.PrincipalFrom(r.Context()).UserName)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "myorders", "My Order History", orders)
}

func (h *handlers) orderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, r, store.ErrNotFound)
		return
	}
	ordering, ok := resolve[*order.OrderingService](w, r)
	if !ok {
		return
	}
	vm, err := ordering.Detail(r.Context(), identity.PrincipalFrom(r.Context()).UserName, id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "detail", "Order Detail", vm)
}
