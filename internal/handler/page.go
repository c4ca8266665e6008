// Package handler contains the HTTP handlers.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (cookies, query, JSON body)
//  2. Call a service, or mount a routing client
//  3. Write the response (status, headers, body)
//
// Business rules live in internal/service and internal/routing; handlers are
// the glue between HTTP and those packages.
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/partnerz/internal/routing"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler renders the app shell: the routed view for the current
// session, or the blocking error screen with its remediation text.
type PageHandler struct {
	auth      *AuthHandler
	templates *template.Template
	logger    *slog.Logger
}

// NewPageHandler parses the embedded templates once at startup.
//
// base.html holds the page frame with a {{template "content" .}}
// placeholder that app.html fills in.
func NewPageHandler(auth *AuthHandler, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/app.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{auth: auth, templates: tmpl, logger: logger}, nil
}

// HandleApp runs a routing pass for the cookie session and renders it.
//
// HTTP: GET /
//
// A fatal error is rendered with 200 like any other state; reloading the
// page is the retry.
func (h *PageHandler) HandleApp(w http.ResponseWriter, r *http.Request) {
	m := h.auth.mount(w, r, h.auth.currentSession(r))
	defer m.listener.Stop()

	resp := m.response()
	data := map[string]any{
		"Title":   pageTitle(resp.State),
		"State":   resp.State,
		"Session": resp.Session,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func pageTitle(s routing.State) string {
	if s.Error != nil {
		return s.Error.Title + " | Partnerz"
	}
	return "Partnerz"
}
