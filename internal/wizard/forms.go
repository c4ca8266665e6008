package wizard

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/sakif/partnerz/internal/model"
)

// ErrAborted is returned when the user quits a form.
var ErrAborted = errors.New("wizard: aborted")

// Credentials is what the sign-in form collects.
type Credentials struct {
	Email    string
	Password string
	Role     model.Role
	SignUp   bool
}

// AskCredentials runs the sign-in / sign-up form.
func AskCredentials() (*Credentials, error) {
	c := &Credentials{Role: model.DefaultRole}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[bool]().
				Title("Do you have an account?").
				Options(
					huh.NewOption("Sign in", false),
					huh.NewOption("Create an account", true),
				).
				Value(&c.SignUp),
			huh.NewSelect[model.Role]().
				Title("I am a...").
				Options(
					huh.NewOption("SaaS founder", model.RoleSaaS),
					huh.NewOption("Affiliate", model.RoleAffiliate),
				).
				Value(&c.Role),
		),
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(&c.Email).Validate(required("email")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&c.Password).Validate(required("password")),
		),
	)
	if err := run(form); err != nil {
		return nil, err
	}
	return c, nil
}

// programInput holds the SaaS wizard's raw text fields.
type programInput struct {
	commissionValue string
	cookieDays      string
}

// AskProgram runs the SaaS onboarding wizard starting from cfg.
func AskProgram(cfg model.ProgramConfig) (model.ProgramConfig, error) {
	in := programInput{
		commissionValue: strconv.FormatFloat(cfg.CommissionValue, 'f', -1, 64),
		cookieDays:      strconv.Itoa(cfg.CookieDays),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Program name").Value(&cfg.Name).Validate(required("program name")),
			huh.NewText().Title("Description").Value(&cfg.Description),
		).Title("Program details"),
		huh.NewGroup(
			huh.NewSelect[model.CommissionType]().
				Title("Commission type").
				Options(
					huh.NewOption("Percentage of revenue", model.CommissionPercentage),
					huh.NewOption("Fixed amount per sale", model.CommissionFixed),
				).
				Value(&cfg.CommissionType),
			huh.NewInput().Title("Commission value").Value(&in.commissionValue).Validate(validFloat),
			huh.NewInput().Title("Cookie duration (days)").Value(&in.cookieDays).Validate(validInt),
			huh.NewConfirm().Title("Recurring commission?").Value(&cfg.IsRecurring),
		).Title("Commission"),
		huh.NewGroup(
			huh.NewConfirm().Title("Stripe connected?").Value(&cfg.StripeConnected),
			huh.NewConfirm().Title("I accept the program terms").Value(&cfg.TermsAccepted),
		).Title("Payouts"),
	)
	if err := run(form); err != nil {
		return cfg, err
	}
	return in.apply(cfg)
}

func (in programInput) apply(cfg model.ProgramConfig) (model.ProgramConfig, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(in.commissionValue), 64)
	if err != nil {
		return cfg, fmt.Errorf("wizard: commission value: %w", err)
	}
	days, err := strconv.Atoi(strings.TrimSpace(in.cookieDays))
	if err != nil {
		return cfg, fmt.Errorf("wizard: cookie days: %w", err)
	}
	cfg.CommissionValue = value
	cfg.CookieDays = days
	return cfg, nil
}

// Niches offered by the affiliate wizard.
var Niches = []string{"SaaS", "Marketing", "Developer Tools", "Productivity", "Finance", "E-commerce", "AI", "Design"}

// TrafficSources offered by the affiliate wizard.
var TrafficSources = []string{"YouTube", "TikTok", "Instagram", "Blog / SEO", "Newsletter", "Podcast", "Paid Ads"}

// affiliateInput holds the affiliate wizard's free-text list field.
type affiliateInput struct {
	preferredSaaS string
}

// AskAffiliate runs the affiliate onboarding wizard.
func AskAffiliate() (model.AffiliateProfile, error) {
	a := model.AffiliateProfile{Currency: "USD"}
	var in affiliateInput

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Full name").Value(&a.FullName).Validate(required("full name")),
			huh.NewInput().Title("Public name").Description("Shown to SaaS companies; optional").Value(&a.PublicName),
			huh.NewText().Title("Bio").Value(&a.Bio),
		).Title("About you"),
		huh.NewGroup(
			huh.NewMultiSelect[string]().Title("Niches").Options(huh.NewOptions(Niches...)...).Value(&a.Niches),
			huh.NewMultiSelect[string]().Title("Traffic sources").Options(huh.NewOptions(TrafficSources...)...).Value(&a.TrafficSources),
		).Title("Audience"),
		huh.NewGroup(
			huh.NewInput().Title("YouTube").Value(&a.Socials.YouTube),
			huh.NewInput().Title("Website").Value(&a.Socials.Website),
			huh.NewInput().Title("Monthly traffic").Placeholder("10k+").Value(&a.Audience.MonthlyTraffic),
			huh.NewInput().Title("SaaS products you'd promote").Description("Comma separated").Value(&in.preferredSaaS),
		).Title("Channels"),
		huh.NewGroup(
			huh.NewInput().Title("Payout currency").Value(&a.Currency),
			huh.NewConfirm().Title("Stripe connected?").Value(&a.StripeConnected),
		).Title("Payouts"),
	)
	if err := run(form); err != nil {
		return a, err
	}
	a.PreferredSaaS = splitList(in.preferredSaaS)
	return a, nil
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func run(form *huh.Form) error {
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validFloat(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("enter a number")
	}
	return nil
}

func validInt(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a whole number")
	}
	return nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
