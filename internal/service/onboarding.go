package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

// Validation limits for the onboarding wizards.
const (
	MaxProgramNameLength = 100
	MaxBioLength         = 1000
	MaxCookieDays        = 365
)

// OnboardingService finishes the role-specific onboarding wizards.
//
// ORDER MATTERS: the role record (program or affiliate profile) is written
// first and the profile is marked complete only after that succeeds. A user
// whose record failed to save stays in onboarding and can submit again.
type OnboardingService struct {
	profiles   repository.ProfileRepository
	programs   repository.ProgramRepository
	affiliates repository.AffiliateRepository
	logger     *slog.Logger
}

func NewOnboardingService(
	profiles repository.ProfileRepository,
	programs repository.ProgramRepository,
	affiliates repository.AffiliateRepository,
	logger *slog.Logger,
) *OnboardingService {
	return &OnboardingService{
		profiles:   profiles,
		programs:   programs,
		affiliates: affiliates,
		logger:     logger,
	}
}

// CompleteSaaS stores the user's first affiliate program and marks
// onboarding complete.
func (s *OnboardingService) CompleteSaaS(ctx context.Context, userID string, cfg model.ProgramConfig) (*model.SaaSProgram, error) {
	if err := validateProgram(&cfg); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, userID, model.RoleSaaS); err != nil {
		return nil, err
	}

	program := &model.SaaSProgram{
		UserID:          userID,
		Name:            cfg.Name,
		Description:     cfg.Description,
		CommissionType:  cfg.CommissionType,
		CommissionValue: cfg.CommissionValue,
		CookieDays:      cfg.CookieDays,
		IsRecurring:     cfg.IsRecurring,
		StripeConnected: cfg.StripeConnected,
	}
	if err := s.programs.CreateProgram(ctx, program); err != nil {
		return nil, fmt.Errorf("service/onboarding: saving program: %w", err)
	}

	if err := s.markComplete(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("saas onboarding complete", "user_id", userID, "program_id", program.ID)
	return program, nil
}

// CompleteAffiliate stores the affiliate's profile details and marks
// onboarding complete.
func (s *OnboardingService) CompleteAffiliate(ctx context.Context, userID string, in model.AffiliateProfile) (*model.AffiliateProfile, error) {
	if err := validateAffiliate(&in); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, userID, model.RoleAffiliate); err != nil {
		return nil, err
	}

	in.UserID = userID
	if err := s.affiliates.CreateAffiliateProfile(ctx, &in); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// A previous submit saved the record but failed before marking
			// the profile complete; finish that job instead of failing.
			s.logger.Warn("affiliate profile already exists, completing onboarding", "user_id", userID)
			existing, getErr := s.affiliates.GetAffiliateProfile(ctx, userID)
			if getErr != nil {
				return nil, fmt.Errorf("service/onboarding: loading existing affiliate profile: %w", getErr)
			}
			in = *existing
		} else {
			return nil, fmt.Errorf("service/onboarding: saving affiliate profile: %w", err)
		}
	}

	if err := s.markComplete(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("affiliate onboarding complete", "user_id", userID)
	return &in, nil
}

// UpdateMetadata replaces the profile's free-form metadata.
func (s *OnboardingService) UpdateMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	if metadata == nil {
		return apperror.ValidationFailed("metadata", "metadata must be an object")
	}
	if err := s.profiles.Update(ctx, userID, model.ProfileUpdate{Metadata: metadata}); err != nil {
		return fmt.Errorf("service/onboarding: updating metadata: %w", err)
	}
	return nil
}

// GetProfile returns the caller's profile.
func (s *OnboardingService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/onboarding: loading profile: %w", err)
	}
	return p, nil
}

// ListPrograms returns the programs a SaaS user owns.
func (s *OnboardingService) ListPrograms(ctx context.Context, userID string) ([]model.SaaSProgram, error) {
	programs, err := s.programs.ListPrograms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/onboarding: listing programs: %w", err)
	}
	return programs, nil
}

func (s *OnboardingService) requireRole(ctx context.Context, userID string, want model.Role) error {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/onboarding: loading profile: %w", err)
	}
	if profile.Role != want {
		return apperror.Forbidden(fmt.Sprintf("this onboarding is for %s accounts", want))
	}
	return nil
}

func (s *OnboardingService) markComplete(ctx context.Context, userID string) error {
	done := true
	if err := s.profiles.Update(ctx, userID, model.ProfileUpdate{OnboardingComplete: &done}); err != nil {
		return fmt.Errorf("service/onboarding: marking onboarding complete: %w", err)
	}
	return nil
}

// validateProgram trims and checks a program config in place.
func validateProgram(cfg *model.ProgramConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Description = strings.TrimSpace(cfg.Description)

	switch {
	case cfg.Name == "":
		return apperror.ValidationFailed("name", "program name is required")
	case len(cfg.Name) > MaxProgramNameLength:
		return apperror.ValidationFailed("name", fmt.Sprintf("program name must be %d characters or fewer", MaxProgramNameLength))
	}

	switch cfg.CommissionType {
	case model.CommissionPercentage:
		if cfg.CommissionValue <= 0 || cfg.CommissionValue > 100 {
			return apperror.ValidationFailed("commissionValue", "commission rate must be between 0 and 100 percent")
		}
	case model.CommissionFixed:
		if cfg.CommissionValue <= 0 {
			return apperror.ValidationFailed("commissionValue", "commission amount must be positive")
		}
	default:
		return apperror.ValidationFailed("commissionType", "commission type must be PERCENTAGE or FIXED")
	}

	if cfg.CookieDays < 1 || cfg.CookieDays > MaxCookieDays {
		return apperror.ValidationFailed("cookieDays", fmt.Sprintf("cookie duration must be between 1 and %d days", MaxCookieDays))
	}
	if !cfg.TermsAccepted {
		return apperror.ValidationFailed("termsAccepted", "the program terms must be accepted")
	}
	if !cfg.StripeConnected {
		return apperror.ValidationFailed("stripeConnected", "connect Stripe before finishing setup")
	}
	return nil
}

func validateAffiliate(a *model.AffiliateProfile) error {
	a.FullName = strings.TrimSpace(a.FullName)
	a.PublicName = strings.TrimSpace(a.PublicName)
	a.Bio = strings.TrimSpace(a.Bio)
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))

	if a.FullName == "" {
		return apperror.ValidationFailed("fullName", "full name is required")
	}
	if len(a.Bio) > MaxBioLength {
		return apperror.ValidationFailed("bio", fmt.Sprintf("bio must be %d characters or fewer", MaxBioLength))
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	if len(a.Currency) != 3 {
		return apperror.ValidationFailed("currency", "currency must be a 3-letter code")
	}
	if !a.StripeConnected {
		return apperror.ValidationFailed("stripeConnected", "connect Stripe before finishing setup")
	}
	return nil
}
