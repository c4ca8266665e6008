package routing

import "github.com/sakif/partnerz/internal/model"

// Phase is where a routing pass stands.
type Phase string

const (
	PhaseAuthenticating Phase = "AUTHENTICATING"
	PhaseRouted         Phase = "ROUTED"
	PhaseFatalError     Phase = "FATAL_ERROR"
)

// FatalError is the user-facing descriptor shown on the blocking error
// screen. Remediation is literal corrective text (usually SQL) and is empty
// for generic failures.
type FatalError struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// State is the observable output of the router. View is set only when
// Phase is ROUTED; Error only when Phase is FATAL_ERROR.
type State struct {
	Phase Phase       `json:"phase"`
	View  model.View  `json:"view,omitempty"`
	Error *FatalError `json:"error,omitempty"`
}

func Authenticating() State {
	return State{Phase: PhaseAuthenticating}
}

func Routed(v model.View) State {
	return State{Phase: PhaseRouted, View: v}
}

func Failed(fe FatalError) State {
	return State{Phase: PhaseFatalError, Error: &fe}
}

// Terminal reports whether the state ends a pass.
func (s State) Terminal() bool {
	return s.Phase == PhaseRouted || s.Phase == PhaseFatalError
}
