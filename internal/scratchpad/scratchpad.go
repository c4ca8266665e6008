// Package scratchpad is the client-scoped key/value store that carries the
// intended-role hint across a sign-up or OAuth redirect.
//
// A hint is written just before the auth call, and read and cleared exactly
// once, when the first profile for the signed-in user is created. When a
// profile already exists the hint is never consulted.
package scratchpad

import (
	"context"
	"fmt"

	"github.com/sakif/partnerz/internal/model"
)

// IntendedRoleKey is the single key the routing core uses.
const IntendedRoleKey = "partnerz_intended_role"

// Store is a small string key/value store owned by one client (a browser,
// a CLI run). Get reports whether the key was present.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}

// SetIntendedRole records the role the user picked before authenticating.
func SetIntendedRole(ctx context.Context, s Store, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("scratchpad: invalid role %q", role)
	}
	return s.Set(ctx, IntendedRoleKey, string(role))
}

// IntendedRole returns the stored hint. A value that is not a known role is
// reported as absent.
func IntendedRole(ctx context.Context, s Store) (model.Role, bool, error) {
	v, ok, err := s.Get(ctx, IntendedRoleKey)
	if err != nil || !ok {
		return "", false, err
	}
	role, err := model.ParseRole(v)
	if err != nil {
		return "", false, nil
	}
	return role, true, nil
}

// ClearIntendedRole removes the hint.
func ClearIntendedRole(ctx context.Context, s Store) error {
	return s.Remove(ctx, IntendedRoleKey)
}
