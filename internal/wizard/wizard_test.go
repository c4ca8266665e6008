package wizard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/routing"
)

func TestRenderState(t *testing.T) {
	s := DefaultStyles()
	sess := &model.Session{UserID: "u1", Email: "ada@x.com"}

	tests := []struct {
		name  string
		state routing.State
		sess  *model.Session
		want  []string
	}{
		{
			name:  "routed",
			state: routing.Routed(model.ViewAffiliateOnboarding),
			sess:  sess,
			want:  []string{"ada@x.com", "Affiliate onboarding", "AFFILIATE_ONBOARDING"},
		},
		{
			name:  "landing signed out",
			state: routing.Routed(model.ViewLanding),
			want:  []string{"Landing page"},
		},
		{
			name:  "authenticating",
			state: routing.Authenticating(),
			want:  []string{"Authenticating"},
		},
		{
			name: "fatal with remediation",
			state: routing.Failed(routing.FatalError{
				Title:       "Database Setup Required",
				Message:     "The 'profiles' table is missing.",
				Remediation: "create table public.profiles (id text primary key);",
			}),
			sess: sess,
			want: []string{"Database Setup Required", "profiles", "SQL editor", "create table public.profiles"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.RenderState(tt.state, tt.sess)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderFatalError_Generic(t *testing.T) {
	out := DefaultStyles().RenderFatalError(routing.FatalError{Title: "Login Error", Message: "boom"})

	assert.Contains(t, out, "Login Error")
	assert.Contains(t, out, "boom")
	assert.False(t, strings.Contains(out, "SQL editor"), "generic errors have no remediation")
}

func TestRenderProgram(t *testing.T) {
	s := DefaultStyles()

	pct := s.RenderProgram(&model.SaaSProgram{Name: "Acme", CommissionType: model.CommissionPercentage, CommissionValue: 20, CookieDays: 60, IsRecurring: true})
	assert.Contains(t, pct, "Acme")
	assert.Contains(t, pct, "20% recurring")
	assert.Contains(t, pct, "60-day")

	fixed := s.RenderProgram(&model.SaaSProgram{Name: "Acme", CommissionType: model.CommissionFixed, CommissionValue: 15, CookieDays: 30})
	assert.Contains(t, fixed, "$15.00 one-time")
}

func TestRenderAffiliate(t *testing.T) {
	out := DefaultStyles().RenderAffiliate(&model.AffiliateProfile{
		FullName: "Ada Lovelace",
		Niches:   []string{"SaaS", "AI"},
		Currency: "EUR",
	})
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "SaaS, AI")
	assert.Contains(t, out, "EUR")
}

func TestProgramInputApply(t *testing.T) {
	cfg, err := programInput{commissionValue: " 12.5 ", cookieDays: "45"}.apply(model.DefaultProgramConfig())
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.CommissionValue)
	assert.Equal(t, 45, cfg.CookieDays)

	_, err = programInput{commissionValue: "lots", cookieDays: "45"}.apply(model.DefaultProgramConfig())
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Notion", "Linear", "Figma"}, splitList(" Notion, Linear,,Figma ,"))
	assert.Nil(t, splitList("  "))
}

func TestValidators(t *testing.T) {
	assert.Error(t, required("email")("  "))
	assert.NoError(t, required("email")("a@x.com"))
	assert.NoError(t, validFloat("2.5"))
	assert.Error(t, validFloat("x"))
	assert.NoError(t, validInt("30"))
	assert.Error(t, validInt("30.5"))
}
