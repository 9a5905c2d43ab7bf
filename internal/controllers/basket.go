package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omarluq/storefront/internal/applog"
	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/order"
	"github.com/omarluq/storefront/internal/web"
)

// BasketCookie identifies an anonymous buyer.
const BasketCookie = ".storefront.basket"

const basketCookieLifetime = 365 * 24 * time.Hour

// BasketController is the logging source for basket and checkout events.
type BasketController struct{}

// buyerID is the signed-in user name, else the anonymous basket cookie.
func buyerID(r *http.Request) string {
	if p := identity.PrincipalFrom(r.Context()); p.IsAuthenticated() {
		return p.UserName
	}
	if c, err := r.Cookie(BasketCookie); err == nil {
		return c.Value
	}
	return ""
}

// ensureBuyer returns buyerID(r), issuing an anonymous id when there is none.
func ensureBuyer(w http.ResponseWriter, r *http.Request) string {
	if id := buyerID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     BasketCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(basketCookieLifetime),
		MaxAge:   int(basketCookieLifetime.Seconds()),
		HttpOnly: true,
		Secure:   identity.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *handlers) basketIndex(w http.ResponseWriter, r *http.Request) {
	svc, ok := resolve[*basket.ViewModelService](w, r)
	if !ok {
		return
	}
	vm, err := svc.GetOrCreateForUser(r.Context(), ensureBuyer(w, r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "basket", "Basket", vm)
}

func (h *handlers) addToBasket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.FormValue("id"))
	if err != nil || id <= 0 {
		web.WriteError(w, http.StatusBadRequest, "invalid catalog item id")
		return
	}
	cat, ok := resolve[*catalog.CachedService](w, r)
	if !ok {
		return
	}
	baskets, ok := resolve[*basket.Service](w, r)
	if !ok {
		return
	}

	item, err := cat.Item(r.Context(), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	b, err := baskets.GetOrCreate(r.Context(), ensureBuyer(w, r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	if _, err := baskets.AddItem(r.Context(), b.ID, item.ID, item.Price, 1); err != nil {
		web.Error(w, r, err)
		return
	}
	http.Redirect(w, r, "/Basket", http.StatusSeeOther)
}

// quantities reads qty-<catalogItemID> form fields.
func quantities(r *http.Request) (map[int]int, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[int]int)
	for key, vals := range r.PostForm {
		idStr, ok := strings.CutPrefix(key, "qty-")
		if !ok || len(vals) == 0 {
			continue
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(vals[0])
		if err != nil || n < 0 {
			return nil, basket.ErrInvalidQuantity
		}
		out[id] = n
	}
	return out, nil
}

func (h *handlers) updateBasket(w http.ResponseWriter, r *http.Request) {
	qty, err := quantities(r)
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid quantities")
		return
	}
	baskets, ok := resolve[*basket.Service](w, r)
	if !ok {
		return
	}
	b, err := baskets.GetOrCreate(r.Context(), ensureBuyer(w, r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	if _, err := baskets.SetQuantities(r.Context(), b.ID, qty); err != nil {
		web.Error(w, r, err)
		return
	}
	http.Redirect(w, r, "/Basket", http.StatusSeeOther)
}

// defaultShipTo is used when the checkout form leaves the address blank.
var defaultShipTo = order.Address{
	Street:  "123 Main St.",
	City:    "Kent",
	State:   "OH",
	Country: "United States",
	ZipCode: "44240",
}

func shipTo(r *http.Request) order.Address {
	a := order.Address{
		Street:  strings.TrimSpace(r.FormValue("street")),
		City:    strings.TrimSpace(r.FormValue("city")),
		State:   strings.TrimSpace(r.FormValue("state")),
		Country: strings.TrimSpace(r.FormValue("country")),
		ZipCode: strings.TrimSpace(r.FormValue("zipCode")),
	}
	if a == (order.Address{}) {
		return defaultShipTo
	}
	return a
}

func (h *handlers) checkout(w http.ResponseWriter, r *http.Request) {
	user := identity.PrincipalFrom(r.Context())
	baskets, ok := resolve[*basket.Service](w, r)
	if !ok {
		return
	}
	ordering, ok := resolve[*order.OrderingService](w, r)
	if !ok {
		return
	}
	log, ok := resolve[applog.Logger[BasketController]](w, r)
	if !ok {
		return
	}

	b, err := baskets.GetOrCreate(r.Context(), user.UserName)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	o, err := ordering.Checkout(r.Context(), b.ID, shipTo(r), user.Email)
	switch {
	case errors.Is(err, order.ErrEmptyBasket):
		http.Redirect(w, r, "/Basket", http.StatusSeeOther)
		return
	case errors.Is(err, order.ErrInvalidAddress):
		web.WriteError(w, http.StatusBadRequest, "street, city, country and zip code are required")
		return
	case err != nil:
		web.Error(w, r, err)
		return
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.RecordOrder()
	}
	log.Ctx(r.Context()).Info().Int("order_id", o.ID).Float64("total", o.Total()).Msg("order placed")
	http.Redirect(w, r, "/Basket/Success?order="+strconv.Itoa(o.ID), http.StatusSeeOther)
}

func (h *handlers) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("order"))
	if err != nil {
		http.Redirect(w, r, "/Order/MyOrders", http.StatusSeeOther)
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
	h.render(w, r, http.StatusOK, "success", "Checkout complete", vm)
}
