// Package routing decides where a signed-in user lands.
//
// A routing pass looks the user's profile up, creates it on first sign-in,
// and maps (role, onboardingComplete) to a view. Every failure ends the pass
// in a FATAL_ERROR state with a classified, user-facing descriptor; nothing
// is retried automatically.
//
// FLOW:
//
//	session ──► lookup profile ──► found ──────────────┐
//	                 │                                   ▼
//	                 └─► not found ──► pick role ──► insert ──► view
//	                                  (metadata > hint > default)
package routing

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
	"github.com/sakif/partnerz/internal/scratchpad"
)

// RoleSource records which input decided a new profile's role.
type RoleSource string

const (
	RoleFromMetadata RoleSource = "metadata"
	RoleFromHint     RoleSource = "hint"
	RoleFromDefault  RoleSource = "default"
)

// Router runs routing passes. It is safe for concurrent use.
type Router struct {
	profiles repository.ProfileRepository
	hints    scratchpad.Store
	flights  *singleflight.Group
	logger   *slog.Logger
}

// New creates a router. hints may be nil when the caller has no scratchpad;
// new profiles then take their role from the session or the default.
func New(profiles repository.ProfileRepository, hints scratchpad.Store, logger *slog.Logger) *Router {
	return &Router{
		profiles: profiles,
		hints:    hints,
		flights:  &singleflight.Group{},
		logger:   logger,
	}
}

// WithHints returns a router that reads and clears hints in another client's
// scratchpad. The copy shares the in-flight guard with r.
func (r *Router) WithHints(hints scratchpad.Store) *Router {
	cp := *r
	cp.hints = hints
	return &cp
}

// Route runs one pass for sess and returns the terminal state.
//
// Passes for the same user ID never overlap: a call that arrives while a
// pass for that user is running waits for it and gets the same result. The
// shared pass runs detached from the caller that started it, so one caller
// going away does not fail the others. Each caller stops waiting when its
// own ctx is done.
//
// Only the starting caller's hint decides a new profile's role. A caller
// that joined a pass which created the profile clears its own hint.
func (r *Router) Route(ctx context.Context, sess *model.Session) State {
	if sess == nil {
		return Routed(model.ViewLanding)
	}

	var leader bool
	ch := r.flights.DoChan(sess.UserID, func() (any, error) {
		leader = true
		return r.bootstrap(context.WithoutCancel(ctx), sess)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return r.failed(sess, ctx.Err())
	}
	if res.Err != nil {
		return r.failed(sess, res.Err)
	}

	out := res.Val.(outcome)
	if !leader {
		r.logger.Debug("joined in-flight routing pass", "user_id", sess.UserID)
		if out.created {
			r.clearHint(ctx, sess)
		}
	}
	return Routed(out.view)
}

// outcome is the shared result of one pass.
type outcome struct {
	view    model.View
	created bool
}

func (r *Router) failed(sess *model.Session, err error) State {
	class, fe := Classify(err)
	r.logger.Error("routing failed",
		"user_id", sess.UserID,
		"classification", class,
		"error", err,
	)
	return Failed(fe)
}

// bootstrap is one pass of the protocol. It performs at most one profile
// read, one profile write, one hint read and one hint clear.
func (r *Router) bootstrap(ctx context.Context, sess *model.Session) (outcome, error) {
	var created bool
	profile, err := r.profiles.GetByID(ctx, sess.UserID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		profile, err = r.create(ctx, sess)
		if err != nil {
			return outcome{}, err
		}
		created = true
	default:
		return outcome{}, apperror.Database(err.Error())
	}

	if profile == nil {
		return outcome{}, apperror.Integrity()
	}

	view, ok := model.ViewFor(profile.Role, profile.OnboardingComplete)
	if !ok {
		return outcome{}, apperror.Database("profile " + profile.ID + " has unknown role " + string(profile.Role))
	}

	r.logger.Info("routed", "user_id", sess.UserID, "role", profile.Role, "view", view)
	return outcome{view: view, created: created}, nil
}

// create inserts the first profile for a user. A nil profile with a nil
// error is passed through for the integrity check.
func (r *Router) create(ctx context.Context, sess *model.Session) (*model.Profile, error) {
	role, source := r.pickRole(ctx, sess)

	r.logger.Info("creating profile",
		"user_id", sess.UserID,
		"email", sess.Email,
		"role", role,
		"role_source", source,
	)

	profile, err := r.profiles.Insert(ctx, model.NewProfile(sess.UserID, sess.Email, role))
	if err != nil {
		return nil, apperror.ProfileCreate(err.Error())
	}

	r.clearHint(ctx, sess)
	return profile, nil
}

// clearHint removes the intended role once a profile exists, so it cannot
// decide the role of a later sign-up on the same client.
func (r *Router) clearHint(ctx context.Context, sess *model.Session) {
	if r.hints == nil {
		return
	}
	if err := scratchpad.ClearIntendedRole(ctx, r.hints); err != nil {
		r.logger.Warn("clearing intended role hint", "user_id", sess.UserID, "error", err)
	}
}

// pickRole applies the precedence: signup metadata, then the hint, then
// model.DefaultRole. The hint is read only when metadata has no valid role.
func (r *Router) pickRole(ctx context.Context, sess *model.Session) (model.Role, RoleSource) {
	if sess.Metadata.Role.Valid() {
		return sess.Metadata.Role, RoleFromMetadata
	}

	if r.hints != nil {
		role, ok, err := scratchpad.IntendedRole(ctx, r.hints)
		if err != nil {
			r.logger.Warn("reading intended role hint", "user_id", sess.UserID, "error", err)
		}
		if ok {
			return role, RoleFromHint
		}
	}
	return model.DefaultRole, RoleFromDefault
}
