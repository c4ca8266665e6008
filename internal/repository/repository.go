// Package repository declares the storage interfaces the services depend on.
//
// Implementations live in sub-packages (sqlite, postgres). All of them report
// a missing row as apperror.ErrNotFound and wrap any other driver error with
// its original message intact.
package repository

import (
	"context"

	"github.com/sakif/partnerz/internal/model"
)

// ProfileRepository is the profile store: point lookup, insert and update by user ID.
type ProfileRepository interface {
	// GetByID returns apperror.ErrNotFound when the user has no profile yet.
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Insert stores a new profile and returns the stored row.
	Insert(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	// Update applies a partial update. Role cannot be changed.
	Update(ctx context.Context, id string, fields model.ProfileUpdate) error
}

// AccountRepository stores the auth service's accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// UpsertGoogle finds the account linked to a Google subject (or, failing
	// that, by email) and creates one if neither exists.
	UpsertGoogle(ctx context.Context, subject, email string) (*model.Account, error)
}

// ProgramRepository stores SaaS affiliate programs.
type ProgramRepository interface {
	CreateProgram(ctx context.Context, program *model.SaaSProgram) error
	ListPrograms(ctx context.Context, userID string) ([]model.SaaSProgram, error)
}

// AffiliateRepository stores affiliate onboarding profiles (one per user).
type AffiliateRepository interface {
	CreateAffiliateProfile(ctx context.Context, profile *model.AffiliateProfile) error
	GetAffiliateProfile(ctx context.Context, userID string) (*model.AffiliateProfile, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	ProfileRepository
	ProgramRepository
	AffiliateRepository
	Accounts() AccountRepository
	Close() error
}
