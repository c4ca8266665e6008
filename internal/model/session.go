package model

import "time"

// UserMetadata is the data attached to an account at signup time.
// Role is empty unless the user picked a role on the signup form.
type UserMetadata struct {
	Role Role `json:"role,omitempty"`
}

// Session is the credential bundle issued by the auth service after a
// successful sign-in, sign-up or OAuth callback.
//
// The routing core only reads UserID, Email and Metadata.Role; it never
// modifies a session.
type Session struct {
	UserID      string       `json:"userId"`
	Email       string       `json:"email"`
	Metadata    UserMetadata `json:"metadata"`
	AccessToken string       `json:"-"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

// SessionEventKind names what happened to the session.
type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "SIGNED_IN"
	SessionSignedOut      SessionEventKind = "SIGNED_OUT"
	SessionTokenRefreshed SessionEventKind = "TOKEN_REFRESHED"
)

// SessionEvent is one change notification. Session is nil after sign-out.
type SessionEvent struct {
	Kind    SessionEventKind
	Session *Session
}
