package routing

import (
	"context"
	"sync"

	"github.com/sakif/partnerz/internal/model"
)

// Machine holds one client's routing state. Handle has the session.Sink
// signature so a listener can drive it directly.
type Machine struct {
	router *Router

	mu    sync.Mutex
	state State
}

// NewMachine starts in AUTHENTICATING.
func NewMachine(router *Router) *Machine {
	return &Machine{router: router, state: Authenticating()}
}

// Handle runs a pass for sess. The state is AUTHENTICATING, with any
// previous fatal error cleared, until the pass ends.
func (m *Machine) Handle(ctx context.Context, sess *model.Session) {
	m.set(Authenticating())
	m.set(m.router.Route(ctx, sess))
}

// SignedOut returns the machine to the landing view.
func (m *Machine) SignedOut() {
	m.set(Routed(model.ViewLanding))
}

// Navigate moves to a static view (landing, login, signup). Non-static views
// are reachable only through a routing pass.
func (m *Machine) Navigate(v model.View) bool {
	if !v.Static() {
		return false
	}
	m.set(Routed(v))
	return true
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
