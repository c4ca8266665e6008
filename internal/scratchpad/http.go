package scratchpad

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DeviceCookie identifies a browser to the Redis-backed store.
const DeviceCookie = "partnerz_device"

// Factory returns the scratchpad for the client making a request.
type Factory func(w http.ResponseWriter, r *http.Request) Store

// CookieFactory keeps hints in the browser's own cookies.
func CookieFactory(opts CookieOptions) Factory {
	return func(w http.ResponseWriter, r *http.Request) Store {
		return NewCookieStore(w, r, opts)
	}
}

// RedisFactory keeps hints in Redis, keyed by a long-lived device cookie that
// is issued on first use.
func RedisFactory(client redis.Cmdable, prefix string, ttl time.Duration, opts CookieOptions) Factory {
	return func(w http.ResponseWriter, r *http.Request) Store {
		return NewRedisStore(client, prefix, deviceID(w, r, opts), ttl)
	}
}

func deviceID(w http.ResponseWriter, r *http.Request, opts CookieOptions) string {
	if c, err := r.Cookie(DeviceCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	// Later reads in this request must see the same id.
	r.AddCookie(&http.Cookie{Name: DeviceCookie, Value: id})
	return id
}
