package scratchpad

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// CookieOptions controls the cookies the HTTP stores write.
type CookieOptions struct {
	Secure bool
	// MaxAge bounds how long an unused hint survives. Zero means 30 minutes.
	MaxAge time.Duration
}

func (o CookieOptions) maxAge() int {
	if o.MaxAge <= 0 {
		return int((30 * time.Minute).Seconds())
	}
	return int(o.MaxAge.Seconds())
}

// CookieStore stores each key in its own cookie. It is bound to one request:
// reads come from the request's cookies, writes go to the response, and
// writes made earlier in the same request are visible to later reads.
type CookieStore struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu      sync.Mutex
	pending map[string]*string // nil value = removed in this request
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	return &CookieStore{w: w, r: r, opts: opts, pending: make(map[string]*string)}
}

func (c *CookieStore) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   c.opts.maxAge(),
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode, // must survive the top-level OAuth redirect back to us
	})
	c.pending[key] = &value
	return nil
}

func (c *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	return cookie.Value, true, nil
}

func (c *CookieStore) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.pending[key] = nil
	return nil
}
