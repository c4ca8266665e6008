package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/routing"
	"github.com/sakif/partnerz/internal/scratchpad"
	"github.com/sakif/partnerz/internal/service"
	"github.com/sakif/partnerz/internal/session"
)

const stateCookie = "oauth_state"

// CookieConfig controls the cookies this handler writes.
type CookieConfig struct {
	Secure bool
}

// AuthHandler serves sign-up, sign-in, Google OAuth, refresh, sign-out and
// the routing state.
//
// Every request mounts a fresh client:
//
//	cookie session ──► AuthClient ──► session.Listener ──► routing.Machine
//	                        ▲                                   │
//	              sign-in / refresh / sign-out            state in response
//
// so a sign-in from any endpoint runs the same routing pass as loading the
// app with an existing cookie.
type AuthHandler struct {
	auth    *service.AuthService
	router  *routing.Router
	hints   scratchpad.Factory
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(
	svc *service.AuthService,
	router *routing.Router,
	hints scratchpad.Factory,
	cookies CookieConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		router:  router,
		hints:   hints,
		cookies: cookies,
		logger:  logger,
	}
}

// mounted is one request's client, listener and state machine.
type mounted struct {
	client   *service.AuthClient
	hints    scratchpad.Store
	machine  *routing.Machine
	listener *session.Listener
}

// mount starts a listener over current (nil when signed out). When it
// returns, the initial routing pass has already run.
func (h *AuthHandler) mount(w http.ResponseWriter, r *http.Request, current *model.Session) *mounted {
	hints := h.hints(w, r)
	client := service.NewAuthClient(h.auth, current)
	machine := routing.NewMachine(h.router.WithHints(hints))
	listener := session.NewListener(client, machine.Handle, h.logger)
	listener.Start(r.Context())
	return &mounted{client: client, hints: hints, machine: machine, listener: listener}
}

// state returns the machine's state, with a signed-out client on the
// landing view.
func (m *mounted) state() routing.State {
	if m.listener.Session() == nil && !m.listener.Loading() {
		m.machine.SignedOut()
	}
	return m.machine.State()
}

// RouteResponse is the body of every endpoint that reports routing state.
type RouteResponse struct {
	State   routing.State  `json:"state"`
	Session *model.Session `json:"session,omitempty"`
}

func (m *mounted) response() RouteResponse {
	return RouteResponse{State: m.state(), Session: m.listener.Session()}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// role parses the optional role field.
func (c credentialsRequest) role() (model.Role, error) {
	if strings.TrimSpace(c.Role) == "" {
		return "", nil
	}
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return "", apperror.ValidationFailed("role", "role must be SAAS or AFFILIATE")
	}
	return role, nil
}

// HandleSignup creates a password account.
//
// HTTP: POST /auth/signup {"email","password","role"}
//
// The role travels in the session metadata and decides the new profile's
// role on the routing pass that runs before this handler responds.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := req.role()
	if err != nil {
		writeError(w, err)
		return
	}

	m := h.mount(w, r, nil)
	defer m.listener.Stop()

	if err := m.client.SignUp(r.Context(), req.Email, req.Password, role); err != nil {
		writeError(w, err)
		return
	}
	h.setToken(w, m.client.Session())
	writeJSON(w, http.StatusCreated, m.response())
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login {"email","password","role"}
//
// The role names the login page used. It is stored as the intended-role
// hint and only matters if this user has no profile yet.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := req.role()
	if err != nil {
		writeError(w, err)
		return
	}

	m := h.mount(w, r, nil)
	defer m.listener.Stop()

	if role != "" {
		h.rememberRole(r.Context(), m.hints, role)
	}
	if err := m.client.SignInWithPassword(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	h.setToken(w, m.client.Session())
	writeJSON(w, http.StatusOK, m.response())
}

// HandleGoogleLogin redirects the browser to Google.
//
// HTTP: GET /auth/google/login?role=AFFILIATE
//
// The role is written to the scratchpad before the redirect; the routing
// pass after the callback reads it and clears it. State is an xid kept in a
// short-lived cookie and checked on the callback (CSRF).
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.auth.OAuthEnabled() {
		writeError(w, apperror.ValidationFailed("provider", "Google sign-in is not configured"))
		return
	}

	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("role", "role must be SAAS or AFFILIATE"))
			return
		}
		h.rememberRole(r.Context(), h.hints(w, r), role)
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	url, err := h.auth.SignInWithOAuth(state)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state cookie against the query (CSRF)
//  2. Exchange the code and sign in; the listener routes the new session
//  3. Set the token cookie and send the browser to the app
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	m := h.mount(w, r, nil)
	defer m.listener.Stop()

	if err := m.client.CompleteOAuth(r.Context(), r.URL.Query().Get("code")); err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.setToken(w, m.client.Session())

	state := m.state()
	h.logger.Info("google sign-in routed",
		slog.String("phase", string(state.Phase)),
		slog.String("view", string(state.View)),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRefresh renews the token cookie and re-runs routing.
//
// HTTP: POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	current := h.currentSession(r)
	if current == nil {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	m := h.mount(w, r, current)
	defer m.listener.Stop()

	if err := m.client.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.setToken(w, m.client.Session())
	writeJSON(w, http.StatusOK, m.response())
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless; the token stays valid until it expires, but the
// browser no longer sends it. The client is mounted signed out so logging
// out never runs a routing pass.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	m := h.mount(w, r, nil)
	defer m.listener.Stop()

	m.client.SignOut(r.Context())
	h.clearToken(w)
	writeJSON(w, http.StatusOK, m.response())
}

// HandleRoute reports where the current user belongs.
//
// HTTP: GET /api/route
//
// This is what the app calls on load and on "retry" from the error screen:
// each call is a fresh pass.
func (h *AuthHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	m := h.mount(w, r, h.currentSession(r))
	defer m.listener.Stop()

	writeJSON(w, http.StatusOK, m.response())
}

// currentSession decodes the token cookie. A missing, invalid or expired
// token means signed out.
func (h *AuthHandler) currentSession(r *http.Request) *model.Session {
	cookie, err := r.Cookie(auth.TokenCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := h.auth.Validate(cookie.Value)
	if err != nil {
		if service.IsExpired(err) {
			h.logger.Debug("session token expired")
		} else {
			h.logger.Warn("rejected session token", slog.String("error", err.Error()))
		}
		return nil
	}
	sess.AccessToken = cookie.Value
	return sess
}

func (h *AuthHandler) rememberRole(ctx context.Context, hints scratchpad.Store, role model.Role) {
	if err := scratchpad.SetIntendedRole(ctx, hints, role); err != nil {
		// Losing the hint only loses the preference; routing falls back to
		// the default role.
		h.logger.Warn("storing intended role failed", slog.String("error", err.Error()))
	}
}

func (h *AuthHandler) setToken(w http.ResponseWriter, sess *model.Session) {
	if sess == nil {
		return
	}
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(auth.DefaultTokenTTL.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
