package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeAccountRepo is an in-memory repository.AccountRepository.
type fakeAccountRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.Account
	nextID    int
	createErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return apperror.Conflict("account", a.Email)
		}
	}
	f.nextID++
	a.ID = "acct-" + string(rune('0'+f.nextID))
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccountRepo) UpsertGoogle(ctx context.Context, subject, email string) (*model.Account, error) {
	f.mu.Lock()
	for _, a := range f.byID {
		if a.GoogleSubject == subject || (email != "" && a.Email == email) {
			a.GoogleSubject = subject
			cp := *a
			f.mu.Unlock()
			return &cp, nil
		}
	}
	f.mu.Unlock()

	a := &model.Account{Email: email, GoogleSubject: subject}
	if err := f.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// fakeGoogle returns a fixed user for any code except "bad".
type fakeGoogle struct {
	user *auth.OAuthUser
}

func (g *fakeGoogle) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*auth.OAuthUser, error) {
	if code == "bad" {
		return nil, errors.New("oauth2: invalid_grant")
	}
	return g.user, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T, repo *fakeAccountRepo, google OAuthProvider) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAuthService(repo, ts, auth.NewPasswordServiceForTest(bcrypt.MinCost), google, testLogger())
}

// =========================================================================
// SIGN UP
// =========================================================================

func TestSignUp_CarriesRoleInSession(t *testing.T) {
	svc := newTestAuthService(t, newFakeAccountRepo(), nil)

	sess, err := svc.SignUp(context.Background(), " Founder@Example.com ", "secret123", model.RoleAffiliate)
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if sess.Email != "founder@example.com" {
		t.Errorf("Email = %q, want normalized", sess.Email)
	}
	if sess.Metadata.Role != model.RoleAffiliate {
		t.Errorf("Metadata.Role = %q, want AFFILIATE", sess.Metadata.Role)
	}
	if sess.AccessToken == "" {
		t.Error("SignUp() returned no token")
	}

	decoded, err := svc.Validate(sess.AccessToken)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if decoded.UserID != sess.UserID || decoded.Metadata.Role != model.RoleAffiliate {
		t.Errorf("token decodes to %+v", decoded)
	}
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		role      model.Role
		wantField string
	}{
		{"bad email", "not-an-email", "secret123", "", "email"},
		{"short password", "a@x.com", "12345", "", "password"},
		{"unknown role", "a@x.com", "secret123", "ADMIN", "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(t, newFakeAccountRepo(), nil)

			_, err := svc.SignUp(context.Background(), tt.email, tt.password, tt.role)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("SignUp() error = %v, want a validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeAccountRepo(), nil)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a@x.com", "secret123", ""); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	_, err := svc.SignUp(ctx, "a@x.com", "other-secret", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second SignUp() error = %v, want ErrConflict", err)
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("message = %q", err.Error())
	}
}

// =========================================================================
// SIGN IN
// =========================================================================

func TestSignInWithPassword(t *testing.T) {
	svc := newTestAuthService(t, newFakeAccountRepo(), nil)
	ctx := context.Background()
	created, err := svc.SignUp(ctx, "a@x.com", "secret123", model.RoleSaaS)
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	sess, err := svc.SignInWithPassword(ctx, "A@X.com", "secret123")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	if sess.UserID != created.UserID {
		t.Errorf("UserID = %q, want %q", sess.UserID, created.UserID)
	}
	if sess.Metadata.Role != model.RoleSaaS {
		t.Errorf("Metadata.Role = %q, want the signup role", sess.Metadata.Role)
	}
}

func TestSignInWithPassword_SameErrorForUnknownAndWrong(t *testing.T) {
	svc := newTestAuthService(t, newFakeAccountRepo(), nil)
	ctx := context.Background()
	_, _ = svc.SignUp(ctx, "a@x.com", "secret123", "")

	_, wrongPassword := svc.SignInWithPassword(ctx, "a@x.com", "nope-nope")
	_, unknownEmail := svc.SignInWithPassword(ctx, "ghost@x.com", "secret123")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
		if err.Error() != "Invalid email or password" {
			t.Errorf("message = %q", err.Error())
		}
	}
}

func TestSignInWithPassword_GoogleOnlyAccount(t *testing.T) {
	repo := newFakeAccountRepo()
	google := &fakeGoogle{user: &auth.OAuthUser{Subject: "g-1", Email: "g@x.com", EmailVerified: true}}
	svc := newTestAuthService(t, repo, google)
	ctx := context.Background()

	if _, err := svc.CompleteOAuth(ctx, "code"); err != nil {
		t.Fatalf("CompleteOAuth() error = %v", err)
	}

	_, err := svc.SignInWithPassword(ctx, "g@x.com", "anything")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// OAUTH
// =========================================================================

func TestSignInWithOAuth_NotConfigured(t *testing.T) {
	svc := newTestAuthService(t, newFakeAccountRepo(), nil)

	if svc.OAuthEnabled() {
		t.Error("OAuthEnabled() = true without a provider")
	}
	if _, err := svc.SignInWithOAuth("state"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("SignInWithOAuth() error = %v, want ErrValidation", err)
	}
}

func TestCompleteOAuth_NoRoleInSession(t *testing.T) {
	google := &fakeGoogle{user: &auth.OAuthUser{Subject: "g-1", Email: "g@x.com", EmailVerified: true}}
	svc := newTestAuthService(t, newFakeAccountRepo(), google)

	url, err := svc.SignInWithOAuth("abc")
	if err != nil || !strings.Contains(url, "state=abc") {
		t.Fatalf("SignInWithOAuth() = %q, %v", url, err)
	}

	sess, err := svc.CompleteOAuth(context.Background(), "code")
	if err != nil {
		t.Fatalf("CompleteOAuth() error = %v", err)
	}
	// OAuth sign-ups carry no role; the intended-role hint decides it.
	if sess.Metadata.Role != "" {
		t.Errorf("Metadata.Role = %q, want empty", sess.Metadata.Role)
	}
}

func TestCompleteOAuth_Errors(t *testing.T) {
	unverified := &fakeGoogle{user: &auth.OAuthUser{Subject: "g-1", Email: "g@x.com"}}
	verified := &fakeGoogle{user: &auth.OAuthUser{Subject: "g-1", Email: "g@x.com", EmailVerified: true}}

	tests := []struct {
		name    string
		google  *fakeGoogle
		code    string
		wantErr error
	}{
		{"missing code", verified, "", apperror.ErrValidation},
		{"unverified email", unverified, "code", apperror.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(t, newFakeAccountRepo(), tt.google)
			_, err := svc.CompleteOAuth(context.Background(), tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompleteOAuth() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	svc := newTestAuthService(t, newFakeAccountRepo(), verified)
	if _, err := svc.CompleteOAuth(context.Background(), "bad"); err == nil {
		t.Error("CompleteOAuth() should fail when the exchange fails")
	}
}

// =========================================================================
// REFRESH
// =========================================================================

func TestRefresh(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAuthService(t, repo, nil)
	ctx := context.Background()
	sess, _ := svc.SignUp(ctx, "a@x.com", "secret123", model.RoleAffiliate)

	refreshed, err := svc.Refresh(ctx, sess)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.UserID != sess.UserID || refreshed.Metadata.Role != model.RoleAffiliate {
		t.Errorf("Refresh() = %+v", refreshed)
	}

	delete(repo.byID, sess.UserID)
	if _, err := svc.Refresh(ctx, sess); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Refresh() for deleted account error = %v, want ErrUnauthorized", err)
	}
}
