package auth

import (
	"context"
	"net/http"

	"github.com/sakif/partnerz/internal/model"
)

// TokenCookie holds the session token.
const TokenCookie = "token"

// contextKey is package-private so no other package can read or shadow the
// session stored in a request context.
type contextKey string

const sessionKey contextKey = "session"

// RequireAuth rejects requests without a valid session cookie with 401 and
// otherwise stores the decoded session in the request context.
//
// Chi runs middlewares as a chain: req → M1 → M2 → handler → M2 → M1 → resp.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := SessionFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalAuth stores the session when the cookie is valid and lets the
// request through either way.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, err := SessionFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session stored by the middleware, or
// (nil, false) for an anonymous request.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*model.Session)
	return sess, ok && sess != nil
}

// SessionFromRequest validates the "token" cookie.
func SessionFromRequest(r *http.Request, tokens *TokenService) (*model.Session, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return nil, err
	}
	return tokens.Validate(cookie.Value)
}
