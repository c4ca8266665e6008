package model

import "time"

// CommissionType is how a SaaS program pays its affiliates.
type CommissionType string

const (
	CommissionPercentage CommissionType = "PERCENTAGE"
	CommissionFixed      CommissionType = "FIXED"
)

// ProgramConfig is what the SaaS onboarding wizard collects.
type ProgramConfig struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	CommissionType  CommissionType `json:"commissionType"`
	CommissionValue float64        `json:"commissionValue"`
	CookieDays      int            `json:"cookieDays"`
	IsRecurring     bool           `json:"isRecurring"`
	TermsAccepted   bool           `json:"termsAccepted"`
	StripeConnected bool           `json:"stripeConnected"`
}

// DefaultProgramConfig holds the wizard's initial values.
func DefaultProgramConfig() ProgramConfig {
	return ProgramConfig{
		CommissionType:  CommissionPercentage,
		CommissionValue: 20,
		CookieDays:      60,
		IsRecurring:     true,
	}
}

// SaaSProgram is a persisted affiliate program owned by a SaaS user.
type SaaSProgram struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	CommissionType  CommissionType `json:"commissionType"`
	CommissionValue float64        `json:"commissionValue"`
	CookieDays      int            `json:"cookieDays"`
	IsRecurring     bool           `json:"isRecurring"`
	StripeConnected bool           `json:"stripeConnected"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Socials holds an affiliate's channel links. All fields are optional.
type Socials struct {
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Audience holds self-reported audience sizes, kept as free text ("10k+").
type Audience struct {
	Subscribers    string `json:"subscribers,omitempty"`
	EmailList      string `json:"emailList,omitempty"`
	MonthlyTraffic string `json:"monthlyTraffic,omitempty"`
}

// AffiliateProfile is what the affiliate onboarding wizard collects.
type AffiliateProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	FullName        string    `json:"fullName"`
	PublicName      string    `json:"publicName"`
	Bio             string    `json:"bio"`
	Niches          []string  `json:"niches"`
	TrafficSources  []string  `json:"trafficSources"`
	Socials         Socials   `json:"socials"`
	Audience        Audience  `json:"audience"`
	PreferredSaaS   []string  `json:"preferredSaaS"`
	Currency        string    `json:"currency"`
	StripeConnected bool      `json:"stripeConnected"`
	CreatedAt       time.Time `json:"createdAt"`
}
