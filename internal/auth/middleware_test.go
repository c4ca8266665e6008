package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/partnerz/internal/model"
)

// sessionEcho writes the user ID from the context, or "anonymous".
func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(sess.UserID))
	})
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Issue(&model.Session{UserID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	expired, err := ts.IssueWithDuration(&model.Session{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid token", valid.AccessToken, http.StatusOK, "u1"},
		{"no cookie", "", http.StatusUnauthorized, ""},
		{"expired", expired.AccessToken, http.StatusUnauthorized, ""},
		{"garbage", "garbage", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireAuth(ts)(sessionEcho()).ServeHTTP(rec, requestWithToken(tt.token))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Issue(&model.Session{UserID: "u1"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	OptionalAuth(ts)(sessionEcho()).ServeHTTP(rec, requestWithToken(valid.AccessToken))
	assert.Equal(t, "u1", rec.Body.String())

	rec = httptest.NewRecorder()
	OptionalAuth(ts)(sessionEcho()).ServeHTTP(rec, requestWithToken("garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
