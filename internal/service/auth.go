// Package service holds the business rules between the HTTP handlers (or
// the CLI) and the repositories:
//
//	Handler / CLI  →  Service (validation, rules)  →  Repository (DB)
//
// Services take repository interfaces, never a concrete database, so tests
// pass in-memory fakes and main.go picks SQLite or PostgreSQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

// ErrInvalidCredentials is the single answer for an unknown email and a wrong
// password, so the response doesn't reveal which accounts exist.
var ErrInvalidCredentials = apperror.Unauthorized("Invalid email or password")

// OAuthProvider is the part of auth.GoogleProvider the service uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.OAuthUser, error)
}

// AuthService is the auth provider: it owns accounts and issues sessions.
//
// DEPENDENCIES:
//   - accounts   repository.AccountRepository → account records
//   - tokens     *auth.TokenService           → signs session tokens
//   - passwords  *auth.PasswordService        → bcrypt
//   - google     OAuthProvider                → nil when Google sign-in is off
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	google    OAuthProvider
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	google OAuthProvider,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		google:    google,
		logger:    logger,
	}
}

// SignUp creates a password account and signs it in. role is optional; when
// set it travels in the session metadata and decides the profile's role on
// the first routing pass.
func (s *AuthService) SignUp(ctx context.Context, email, password string, role model.Role) (*model.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", strings.TrimPrefix(err.Error(), "auth: "))
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	account := &model.Account{Email: email, PasswordHash: hash, SignupRole: role}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "An account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account created", "user_id", account.ID, "signup_role", role)
	return s.issue(account)
}

// SignInWithPassword checks the credentials and issues a session.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}

	// Google-only accounts have no password hash.
	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("password sign-in rejected", "user_id", account.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(account)
}

// OAuthEnabled reports whether Google sign-in is configured.
func (s *AuthService) OAuthEnabled() bool {
	return s.google != nil
}

// SignInWithOAuth returns the Google consent URL for state.
func (s *AuthService) SignInWithOAuth(state string) (string, error) {
	if s.google == nil {
		return "", apperror.ValidationFailed("provider", "Google sign-in is not configured")
	}
	return s.google.AuthURL(state), nil
}

// CompleteOAuth exchanges the callback code and signs the Google user in,
// creating or linking an account as needed.
func (s *AuthService) CompleteOAuth(ctx context.Context, code string) (*model.Session, error) {
	if s.google == nil {
		return nil, apperror.ValidationFailed("provider", "Google sign-in is not configured")
	}
	if code == "" {
		return nil, apperror.ValidationFailed("code", "missing authorization code")
	}

	user, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	if user.Email != "" && !user.EmailVerified {
		return nil, apperror.Unauthorized("Google account email is not verified")
	}

	account, err := s.accounts.UpsertGoogle(ctx, user.Subject, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting google account: %w", err)
	}

	s.logger.Info("account authenticated via Google", "user_id", account.ID)
	return s.issue(account)
}

// Refresh issues a fresh token for a still-valid session. The account is
// re-read so a deleted account cannot keep refreshing.
func (s *AuthService) Refresh(ctx context.Context, sess *model.Session) (*model.Session, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("no session to refresh")
	}
	account, err := s.accounts.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: refreshing session: %w", err)
	}
	return s.issue(account)
}

// Validate decodes a session token.
func (s *AuthService) Validate(token string) (*model.Session, error) {
	sess, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return sess, nil
}

func (s *AuthService) issue(account *model.Account) (*model.Session, error) {
	sess, err := s.tokens.Issue(account.Session())
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for %s: %w", account.ID, err)
	}
	return sess, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "a valid email address is required")
	}
	return email, nil
}
