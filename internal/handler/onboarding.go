package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/routing"
	"github.com/sakif/partnerz/internal/service"
)

// OnboardingHandler serves the profile and the two onboarding wizards.
// All routes sit behind auth.RequireAuth.
type OnboardingHandler struct {
	svc    *service.OnboardingService
	logger *slog.Logger
}

func NewOnboardingHandler(svc *service.OnboardingService, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{svc: svc, logger: logger}
}

// OnboardingResponse carries the saved record and where the user goes next.
type OnboardingResponse struct {
	State  routing.State `json:"state"`
	Record any           `json:"record"`
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /api/me
func (h *OnboardingHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleSaaS finishes SaaS onboarding.
//
// HTTP: POST /api/onboarding/saas  body: model.ProgramConfig
func (h *OnboardingHandler) HandleSaaS(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	var cfg model.ProgramConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, err)
		return
	}

	program, err := h.svc.CompleteSaaS(r.Context(), userID, cfg)
	if err != nil {
		h.logger.Warn("saas onboarding failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, OnboardingResponse{
		State:  routing.Routed(model.ViewSaaSDashboard),
		Record: program,
	})
}

// HandleAffiliate finishes affiliate onboarding.
//
// HTTP: POST /api/onboarding/affiliate  body: model.AffiliateProfile
func (h *OnboardingHandler) HandleAffiliate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	var in model.AffiliateProfile
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.svc.CompleteAffiliate(r.Context(), userID, in)
	if err != nil {
		h.logger.Warn("affiliate onboarding failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, OnboardingResponse{
		State:  routing.Routed(model.ViewAffiliateDashboard),
		Record: saved,
	})
}

// HandleMetadata replaces the profile's metadata.
//
// HTTP: PUT /api/profile/metadata  body: JSON object
func (h *OnboardingHandler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	var metadata map[string]any
	if err := decodeJSON(w, r, &metadata); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.UpdateMetadata(r.Context(), userID, metadata); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePrograms lists the caller's programs.
//
// HTTP: GET /api/programs
func (h *OnboardingHandler) HandlePrograms(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	programs, err := h.svc.ListPrograms(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// userIDFrom reads the session RequireAuth stored. On a route without the
// middleware it answers 401 itself.
func userIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return sess.UserID, true
}
