package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/partnerz/internal/model"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testSession() *model.Session {
	return &model.Session{
		UserID:   "user-123",
		Email:    "a@x.com",
		Metadata: model.UserMetadata{Role: model.RoleAffiliate},
	}
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", 0); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// ISSUE / VALIDATE
// =========================================================================

func TestIssue_FillsTokenAndExpiry(t *testing.T) {
	ts := newTestTokenService(t)
	in := testSession()

	out, err := ts.Issue(in)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(out.AccessToken, ".") != 2 {
		t.Errorf("token %q is not header.payload.signature", out.AccessToken)
	}
	if time.Until(out.ExpiresAt) < 59*time.Minute {
		t.Errorf("ExpiresAt = %v, want about an hour from now", out.ExpiresAt)
	}
	if in.AccessToken != "" {
		t.Error("Issue() must not modify its input")
	}
}

func TestIssue_RequiresUserID(t *testing.T) {
	ts := newTestTokenService(t)
	if _, err := ts.Issue(&model.Session{Email: "a@x.com"}); err == nil {
		t.Error("Issue() should reject a session without a user ID")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	issued, _ := ts.Issue(testSession())

	got, err := ts.Validate(issued.AccessToken)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.UserID != "user-123" || got.Email != "a@x.com" {
		t.Errorf("Validate() = %+v", got)
	}
	if got.Metadata.Role != model.RoleAffiliate {
		t.Errorf("role claim = %q, want %q", got.Metadata.Role, model.RoleAffiliate)
	}
	if !got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, issued.ExpiresAt)
	}
}

func TestValidate_NoRoleClaim(t *testing.T) {
	ts := newTestTokenService(t)
	issued, _ := ts.Issue(&model.Session{UserID: "u1", Email: "a@x.com"})

	got, err := ts.Validate(issued.AccessToken)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.Metadata.Role != "" {
		t.Errorf("role = %q, want empty (no signup hint)", got.Metadata.Role)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	issued, _ := ts.IssueWithDuration(testSession(), -time.Minute)

	_, err := ts.Validate(issued.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Issue(testSession())

	other, _ := NewTokenService("a-completely-different-secret", time.Hour)
	foreign, _ := other.Issue(testSession())

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered", good.AccessToken + "x"},
		{"wrong secret", foreign.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
