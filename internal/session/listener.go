// Package session turns an auth provider's two session signals, the initial
// "current session" fetch and the change-notification stream, into one
// consistent value and forwards every signed-in session downstream.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/partnerz/internal/model"
)

// Source is the part of an auth provider the listener needs.
type Source interface {
	// CurrentSession returns the signed-in session, or nil when signed out.
	CurrentSession(ctx context.Context) (*model.Session, error)
	// OnSessionChange registers fn for every later sign-in, sign-out and
	// token refresh. The returned func removes the subscription.
	OnSessionChange(fn func(ctx context.Context, ev model.SessionEvent)) (unsubscribe func())
}

// Sink receives each non-nil session. In the app this is the router.
type Sink func(ctx context.Context, sess *model.Session)

// Listener owns one subscription on a Source. The zero value is not usable;
// create one with NewListener.
type Listener struct {
	source Source
	sink   Sink
	logger *slog.Logger

	mu          sync.Mutex
	loading     bool
	session     *model.Session
	unsubscribe func()
	stopped     bool
}

func NewListener(source Source, sink Sink, logger *slog.Logger) *Listener {
	return &Listener{
		source:  source,
		sink:    sink,
		logger:  logger,
		loading: true,
	}
}

// Start subscribes to changes and then seeds the value with one fetch.
// A failed fetch counts as "no session"; it is logged, never retried.
//
// Start delivers the initial session synchronously, so when it returns the
// sink has already run for a signed-in user. Start on a stopped listener
// does nothing.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return
	}

	unsubscribe := l.source.OnSessionChange(func(ctx context.Context, ev model.SessionEvent) {
		l.logger.Debug("session event", "kind", ev.Kind, "signed_in", ev.Session != nil)
		l.deliver(ctx, ev.Session)
	})

	l.mu.Lock()
	if l.stopped {
		// Stop ran while we were subscribing.
		l.mu.Unlock()
		unsubscribe()
		return
	}
	l.unsubscribe = unsubscribe
	l.mu.Unlock()

	sess, err := l.source.CurrentSession(ctx)
	if err != nil {
		l.logger.Warn("fetching current session failed, treating as signed out", "error", err)
		sess = nil
	}
	l.deliver(ctx, sess)
}

// Stop removes the change subscription. Safe to call more than once. A
// listener stopped before Start never subscribes.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.stopped = true
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Loading reports whether no emission has been processed yet.
func (l *Listener) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Session returns the latest session, or nil when signed out.
func (l *Listener) Session() *model.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *Listener) deliver(ctx context.Context, sess *model.Session) {
	l.mu.Lock()
	l.session = sess
	if sess == nil {
		l.loading = false
	}
	l.mu.Unlock()

	if sess == nil {
		return
	}

	l.sink(ctx, sess)

	l.mu.Lock()
	l.loading = false
	l.mu.Unlock()
}
