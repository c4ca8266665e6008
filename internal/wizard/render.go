// Package wizard is the terminal front end: huh forms for signing in and for
// the two onboarding wizards, and lipgloss rendering of routing results.
package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/routing"
)

// Styles holds the lipgloss styles used by the renderers.
type Styles struct {
	Title       lipgloss.Style
	Muted       lipgloss.Style
	View        lipgloss.Style
	ErrorTitle  lipgloss.Style
	ErrorBox    lipgloss.Style
	Remediation lipgloss.Style
	Success     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		View: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		ErrorTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		ErrorBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1),
		Remediation: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
	}
}

// viewLabels are the human names of each view.
var viewLabels = map[model.View]string{
	model.ViewLanding:             "Landing page",
	model.ViewSaaSLogin:           "SaaS sign-in",
	model.ViewSaaSSignup:          "SaaS sign-up",
	model.ViewSaaSOnboarding:      "SaaS onboarding: set up your affiliate program",
	model.ViewSaaSDashboard:       "SaaS dashboard",
	model.ViewAffiliateLogin:      "Affiliate sign-in",
	model.ViewAffiliateSignup:     "Affiliate sign-up",
	model.ViewAffiliateOnboarding: "Affiliate onboarding: complete your profile",
	model.ViewAffiliateDashboard:  "Affiliate dashboard",
}

// RenderState renders a routing result. sess may be nil.
func (s Styles) RenderState(state routing.State, sess *model.Session) string {
	var b strings.Builder

	b.WriteString(s.Title.Render("Partnerz"))
	b.WriteString("\n\n")
	if sess != nil {
		b.WriteString(s.Muted.Render("Signed in as " + sess.Email))
		b.WriteString("\n\n")
	}

	switch state.Phase {
	case routing.PhaseFatalError:
		b.WriteString(s.RenderFatalError(*state.Error))
	case routing.PhaseRouted:
		label, ok := viewLabels[state.View]
		if !ok {
			label = string(state.View)
		}
		b.WriteString(s.Muted.Render("Next: "))
		b.WriteString(s.View.Render(label))
		b.WriteString(s.Muted.Render(fmt.Sprintf(" (%s)", state.View)))
	default:
		b.WriteString(s.Muted.Render("Authenticating..."))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderFatalError renders the blocking error screen.
func (s Styles) RenderFatalError(fe routing.FatalError) string {
	var body strings.Builder
	body.WriteString(s.ErrorTitle.Render(fe.Title))
	body.WriteString("\n\n")
	body.WriteString(fe.Message)
	if fe.Remediation != "" {
		body.WriteString("\n\n")
		body.WriteString(s.Muted.Render("Run this in your database's SQL editor, then retry:"))
		body.WriteString("\n\n")
		body.WriteString(s.Remediation.Render(fe.Remediation))
	}
	return s.ErrorBox.Render(body.String())
}

// RenderProgram summarises a saved program.
func (s Styles) RenderProgram(p *model.SaaSProgram) string {
	commission := fmt.Sprintf("%g%%", p.CommissionValue)
	if p.CommissionType == model.CommissionFixed {
		commission = fmt.Sprintf("$%.2f", p.CommissionValue)
	}
	recurring := "one-time"
	if p.IsRecurring {
		recurring = "recurring"
	}
	return s.Success.Render("Program created: ") + s.View.Render(p.Name) + "\n" +
		s.Muted.Render(fmt.Sprintf("%s %s commission, %d-day cookie", commission, recurring, p.CookieDays)) + "\n"
}

// RenderAffiliate summarises a saved affiliate profile.
func (s Styles) RenderAffiliate(a *model.AffiliateProfile) string {
	name := a.PublicName
	if name == "" {
		name = a.FullName
	}
	out := s.Success.Render("Profile saved: ") + s.View.Render(name) + "\n"
	if len(a.Niches) > 0 {
		out += s.Muted.Render("Niches: "+strings.Join(a.Niches, ", ")) + "\n"
	}
	return out + s.Muted.Render("Payouts in "+a.Currency) + "\n"
}
