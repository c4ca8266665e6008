// Package auth holds the credential primitives behind the sign-in flows:
// session tokens, password hashing, Google OAuth and the cookie middleware.
//
// SESSION FLOW:
//  1. The user signs up, signs in with a password, or completes Google OAuth.
//  2. The server issues a signed session token and stores it in the
//     HttpOnly "token" cookie.
//  3. Later requests carry the cookie; the middleware validates it and puts
//     the decoded *model.Session in the request context.
//
// A token is self-contained: the user ID, email and the role chosen at signup
// travel in its claims, so validating one needs only the secret, never the DB.
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<user id>","email":"a@x.com","role":"AFFILIATE","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/partnerz/internal/model"
)

const issuer = "partnerz"

// DefaultTokenTTL is how long a session token stays valid without a refresh.
const DefaultTokenTTL = time.Hour

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService needs a secret of at least 16 characters. A zero ttl
// means DefaultTokenTTL.
//
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the token payload. "sub" carries the user ID.
type claims struct {
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for sess with the service's TTL. It returns a copy of
// the session with AccessToken and ExpiresAt filled in.
func (s *TokenService) Issue(sess *model.Session) (*model.Session, error) {
	return s.IssueWithDuration(sess, s.ttl)
}

// IssueWithDuration is Issue with an explicit lifetime. Tests use it to mint
// already-expired tokens.
func (s *TokenService) IssueWithDuration(sess *model.Session, d time.Duration) (*model.Session, error) {
	if sess == nil || sess.UserID == "" {
		return nil, errors.New("auth: cannot issue a token without a user ID")
	}

	now := time.Now()
	expires := now.Add(d)
	c := claims{
		Email: sess.Email,
		Role:  sess.Metadata.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	out := *sess
	out.AccessToken = signed
	out.ExpiresAt = expires.UTC().Truncate(time.Second)
	return &out, nil
}

// Validate verifies a token and returns the session it describes.
//
// CHECKS:
//   - signature (HS256 only, so "alg":"none" tokens are rejected)
//   - expiry is present and in the future
//   - issuer is "partnerz"
func (s *TokenService) Validate(tokenStr string) (*model.Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	sess := &model.Session{
		UserID:      c.Subject,
		Email:       c.Email,
		AccessToken: tokenStr,
	}
	if c.Role.Valid() {
		sess.Metadata.Role = c.Role
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return sess, nil
}
