// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, and small string types for enums.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role decides which onboarding wizard and dashboard a user gets.
//
// It is stored as plain text ("SAAS" / "AFFILIATE") so the same value travels
// unchanged through the database, JWT claims, cookies and JSON.
type Role string

const (
	RoleSaaS      Role = "SAAS"
	RoleAffiliate Role = "AFFILIATE"
)

// DefaultRole is used when neither the signup metadata nor the intended-role
// hint name a role.
const DefaultRole = RoleSaaS

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleSaaS || r == RoleAffiliate
}

func (r Role) String() string { return string(r) }

// ParseRole converts user input ("saas", " Affiliate ") into a Role.
// The empty string is rejected; callers treat "no role" separately.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("model: unknown role %q", s)
	}
	return r, nil
}

// Profile is the durable per-user record.
//
// INVARIANTS:
//   - ID equals the auth provider's user ID; there is at most one profile per user.
//   - Role is set once, when the profile is created, and is never updated.
//   - OnboardingComplete and Metadata are written later by the onboarding wizards
//     through ProfileUpdate.
type Profile struct {
	ID                 string         `json:"id"`
	Email              string         `json:"email"`
	Role               Role           `json:"role"`
	OnboardingComplete bool           `json:"onboardingComplete"`
	Metadata           map[string]any `json:"metadata"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// NewProfile builds the record the bootstrapper inserts for a first-time user.
func NewProfile(userID, email string, role Role) *Profile {
	return &Profile{
		ID:                 userID,
		Email:              email,
		Role:               role,
		OnboardingComplete: false,
		Metadata:           map[string]any{},
	}
}

// ProfileUpdate is a partial update. Nil fields are left untouched.
// There is deliberately no Role field.
type ProfileUpdate struct {
	OnboardingComplete *bool
	Metadata           map[string]any
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.OnboardingComplete == nil && u.Metadata == nil
}
