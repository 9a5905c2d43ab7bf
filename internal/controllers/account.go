package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/omarluq/storefront/internal/applog"
	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/web"
)

// AccountController is the logging source for sign-in events.
type AccountController struct{}

// Sign-in outcomes recorded in metrics.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// AccountForm is the model of the sign-in and register pages.
type AccountForm struct {
	Email     string
	ReturnURL string
	Error     string
}

func (h *handlers) recordSignIn(outcome string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.RecordSignIn(outcome)
	}
}

func (h *handlers) signinForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signin", "Log in", AccountForm{ReturnURL: r.URL.Query().Get("ReturnUrl")})
}

func (h *handlers) signin(w http.ResponseWriter, r *http.Request) {
	form := AccountForm{
		Email:     strings.TrimSpace(r.FormValue("email")),
		ReturnURL: r.FormValue("ReturnUrl"),
	}
	signIn, ok := resolve[*identity.SignInManager](w, r)
	if !ok {
		return
	}

	p, err := signIn.PasswordSignIn(r.Context(), form.Email, r.FormValue("password"))
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.recordSignIn(outcomeFailure)
		form.Error = "Invalid login attempt."
		h.render(w, r, http.StatusOK, "signin", "Log in", form)
		return
	}
	if err != nil {
		web.Error(w, r, err)
		return
	}
	h.completeSignIn(w, r, signIn, p, form.ReturnURL)
}

// completeSignIn issues the cookie, moves the anonymous basket to the user
// and redirects to returnURL when it is local.
func (h *handlers) completeSignIn(
	w http.ResponseWriter, r *http.Request, signIn *identity.SignInManager, p identity.Principal, returnURL string,
) {
	log, ok := resolve[applog.Logger[AccountController]](w, r)
	if !ok {
		return
	}
	if _, err := signIn.SignIn(w, r, p); err != nil {
		web.Error(w, r, err)
		return
	}
	h.recordSignIn(outcomeSuccess)

	if c, err := r.Cookie(BasketCookie); err == nil && c.Value != "" {
		if baskets, err := di.ResolveCtx[*basket.Service](r.Context()); err == nil {
			if err := baskets.Transfer(r.Context(), c.Value, p.UserName); err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("anonymous basket not transferred")
			}
		}
		http.SetCookie(w, &http.Cookie{Name: BasketCookie, Value: "", Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})
	}
	log.Ctx(r.Context()).Info().Str("user", p.UserName).Msg("user logged in")
	http.Redirect(w, r, web.LocalRedirect(returnURL, "/"), http.StatusFound)
}

func (h *handlers) signout(w http.ResponseWriter, r *http.Request) {
	signIn, ok := resolve[*identity.SignInManager](w, r)
	if !ok {
		return
	}
	signIn.SignOut(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", "Register", AccountForm{ReturnURL: r.URL.Query().Get("ReturnUrl")})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	form := AccountForm{
		Email:     strings.TrimSpace(r.FormValue("email")),
		ReturnURL: r.FormValue("ReturnUrl"),
	}
	password := r.FormValue("password")
	if password != r.FormValue("confirmPassword") {
		form.Error = "The password and confirmation password do not match."
		h.render(w, r, http.StatusOK, "register", "Register", form)
		return
	}
	users, ok := resolve[*identity.UserManager](w, r)
	if !ok {
		return
	}
	signIn, ok := resolve[*identity.SignInManager](w, r)
	if !ok {
		return
	}

	u, err := users.Create(r.Context(), form.Email, form.Email, password)
	switch {
	case errors.Is(err, identity.ErrWeakPassword), errors.Is(err, identity.ErrDuplicateUser):
		form.Error = err.Error()
		h.render(w, r, http.StatusOK, "register", "Register", form)
		return
	case err != nil:
		web.Error(w, r, err)
		return
	}
	h.completeSignIn(w, r, signIn, identity.Principal{UserName: u.UserName, Email: u.Email, Roles: u.Roles}, form.ReturnURL)
}

type tokenRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// TokenResponse is the body of POST /Account/Token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// token exchanges credentials for a bearer ticket for API clients.
func (h *handlers) token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		web.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	signIn, ok := resolve[*identity.SignInManager](w, r)
	if !ok {
		return
	}
	cookies, ok := resolve[*identity.CookieManager](w, r)
	if !ok {
		return
	}

	p, err := signIn.PasswordSignIn(r.Context(), req.UserName, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.recordSignIn(outcomeFailure)
		web.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		web.Error(w, r, err)
		return
	}
	tok, p, err := cookies.Tickets().Protect(p)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	h.recordSignIn(outcomeSuccess)
	web.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int(p.ExpiresAt.Sub(p.IssuedAt).Seconds()),
	})
}
