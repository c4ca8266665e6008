package model

// View is a navigational state of the presentation layer.
type View string

const (
	ViewLanding             View = "LANDING"
	ViewSaaSLogin           View = "SAAS_LOGIN"
	ViewSaaSSignup          View = "SAAS_SIGNUP"
	ViewSaaSOnboarding      View = "SAAS_ONBOARDING"
	ViewSaaSDashboard       View = "SAAS_DASHBOARD"
	ViewAffiliateLogin      View = "AFFILIATE_LOGIN"
	ViewAffiliateSignup     View = "AFFILIATE_SIGNUP"
	ViewAffiliateOnboarding View = "AFFILIATE_ONBOARDING"
	ViewAffiliateDashboard  View = "AFFILIATE_DASHBOARD"
)

// ViewFor maps a profile's (role, onboardingComplete) pair to its landing view:
//
//	SAAS      + incomplete → SAAS_ONBOARDING
//	SAAS      + complete   → SAAS_DASHBOARD
//	AFFILIATE + incomplete → AFFILIATE_ONBOARDING
//	AFFILIATE + complete   → AFFILIATE_DASHBOARD
//
// The second return value is false for an unknown role.
func ViewFor(role Role, onboardingComplete bool) (View, bool) {
	switch role {
	case RoleSaaS:
		if onboardingComplete {
			return ViewSaaSDashboard, true
		}
		return ViewSaaSOnboarding, true
	case RoleAffiliate:
		if onboardingComplete {
			return ViewAffiliateDashboard, true
		}
		return ViewAffiliateOnboarding, true
	}
	return "", false
}

// LoginView returns the static sign-in view for a role.
func LoginView(role Role) View {
	if role == RoleAffiliate {
		return ViewAffiliateLogin
	}
	return ViewSaaSLogin
}

// SignupView returns the static sign-up view for a role.
func SignupView(role Role) View {
	if role == RoleAffiliate {
		return ViewAffiliateSignup
	}
	return ViewSaaSSignup
}

// Static reports whether v is pure navigation (landing and the login/signup
// screens) with no profile behind it.
func (v View) Static() bool {
	switch v {
	case ViewLanding, ViewSaaSLogin, ViewSaaSSignup, ViewAffiliateLogin, ViewAffiliateSignup:
		return true
	}
	return false
}
