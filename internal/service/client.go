package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sakif/partnerz/internal/auth"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/session"
)

// AuthClient is one client's view of the auth provider: a browser request or
// a CLI run. It remembers the current session and notifies subscribers
// after every sign-in, refresh and sign-out.
type AuthClient struct {
	svc *AuthService

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(context.Context, model.SessionEvent)
	nextID  int
}

var _ session.Source = (*AuthClient)(nil)

// NewAuthClient starts from current, which may be nil (signed out).
func NewAuthClient(svc *AuthService, current *model.Session) *AuthClient {
	return &AuthClient{
		svc:     svc,
		current: current,
		subs:    make(map[int]func(context.Context, model.SessionEvent)),
	}
}

// CurrentSession returns the current session. A session whose token has
// expired is reported as an error.
func (c *AuthClient) CurrentSession(context.Context) (*model.Session, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur == nil {
		return nil, nil
	}
	if cur.AccessToken != "" {
		if _, err := c.svc.Validate(cur.AccessToken); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (c *AuthClient) OnSessionChange(fn func(context.Context, model.SessionEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Session returns the latest session without validating it.
func (c *AuthClient) Session() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) error {
	sess, err := c.svc.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	c.change(ctx, model.SessionSignedIn, sess)
	return nil
}

func (c *AuthClient) SignUp(ctx context.Context, email, password string, role model.Role) error {
	sess, err := c.svc.SignUp(ctx, email, password, role)
	if err != nil {
		return err
	}
	c.change(ctx, model.SessionSignedIn, sess)
	return nil
}

// SignInWithOAuth returns the provider URL. The session arrives later,
// through CompleteOAuth on the callback.
func (c *AuthClient) SignInWithOAuth(state string) (string, error) {
	return c.svc.SignInWithOAuth(state)
}

func (c *AuthClient) CompleteOAuth(ctx context.Context, code string) error {
	sess, err := c.svc.CompleteOAuth(ctx, code)
	if err != nil {
		return err
	}
	c.change(ctx, model.SessionSignedIn, sess)
	return nil
}

// Refresh renews the current session's token.
func (c *AuthClient) Refresh(ctx context.Context) error {
	cur := c.Session()
	if cur == nil {
		return errors.New("service: not signed in")
	}
	sess, err := c.svc.Refresh(ctx, cur)
	if err != nil {
		return err
	}
	c.change(ctx, model.SessionTokenRefreshed, sess)
	return nil
}

func (c *AuthClient) SignOut(ctx context.Context) {
	c.change(ctx, model.SessionSignedOut, nil)
}

// change stores the new session and then notifies subscribers outside the
// lock, so a subscriber may call back into the client.
func (c *AuthClient) change(ctx context.Context, kind model.SessionEventKind, sess *model.Session) {
	c.mu.Lock()
	c.current = sess
	subs := make([]func(context.Context, model.SessionEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	ev := model.SessionEvent{Kind: kind, Session: sess}
	for _, fn := range subs {
		fn(ctx, ev)
	}
}

// IsExpired reports whether err is an expired-token error.
func IsExpired(err error) bool {
	return errors.Is(err, auth.ErrTokenExpired)
}
