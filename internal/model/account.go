package model

import "time"

// Account is the auth service's own user record. It is separate from Profile:
// an account exists as soon as someone signs up, a profile only after the
// first routing pass.
//
// PasswordHash is empty for Google-only accounts; GoogleSubject is empty for
// password-only accounts. SignupRole is the role picked on the signup form
// and ends up in Session.Metadata.Role.
type Account struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	GoogleSubject string    `json:"-"`
	SignupRole    Role      `json:"signupRole,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session builds the session view of this account.
func (a *Account) Session() *Session {
	return &Session{
		UserID:   a.ID,
		Email:    a.Email,
		Metadata: UserMetadata{Role: a.SignupRole},
	}
}
