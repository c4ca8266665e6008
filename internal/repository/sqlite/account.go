package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

// AccountDB implements repository.AccountRepository on the shared pool.
// It is a separate type because Profile and Account both have GetByID.
type AccountDB struct {
	conn *sql.DB
}

var _ repository.AccountRepository = (*AccountDB)(nil)

const accountColumns = `id, email, password_hash, COALESCE(google_subject, ''), signup_role, created_at, updated_at`

// Create inserts a new account. The ID is generated here (UUID, like the
// user IDs of hosted auth providers). A duplicate email returns ErrConflict.
func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = uuid.NewString()
	account.Email = normalizeEmail(account.Email)
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, google_subject, signup_role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		nullIfEmpty(account.GoogleSubject),
		string(account.SignupRole),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.Email, err)
	}
	return nil
}

// GetByID returns the account with the given ID, or apperror.ErrNotFound.
func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	acc, err := a.getOne(ctx, `WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return acc, nil
}

// GetByEmail looks an account up by its (case-insensitive) email.
func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = normalizeEmail(email)
	acc, err := a.getOne(ctx, `WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", email, err)
	}
	return acc, nil
}

// UpsertGoogle resolves a Google identity to an account.
//
// LOOKUP ORDER:
//  1. An account already linked to this Google subject.
//  2. An account with the same email (password signup): link it.
//  3. Otherwise create a new account with no password.
func (a *AccountDB) UpsertGoogle(ctx context.Context, subject, email string) (*model.Account, error) {
	acc, err := a.getOne(ctx, `WHERE google_subject = ?`, subject)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up google subject: %w", err)
	}

	if email != "" {
		acc, err = a.getOne(ctx, `WHERE email = ?`, normalizeEmail(email))
		switch {
		case err == nil:
			acc.GoogleSubject = subject
			acc.UpdatedAt = time.Now().UTC()
			if _, err := a.conn.ExecContext(ctx,
				`UPDATE accounts SET google_subject = ?, updated_at = ? WHERE id = ?`,
				subject, acc.UpdatedAt, acc.ID,
			); err != nil {
				return nil, fmt.Errorf("sqlite: linking google subject to %s: %w", acc.ID, err)
			}
			return acc, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("sqlite: looking up account by email: %w", err)
		}
	}

	acc = &model.Account{Email: email, GoogleSubject: subject}
	if err := a.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (a *AccountDB) getOne(ctx context.Context, where string, arg any) (*model.Account, error) {
	var (
		acc  model.Account
		role string
	)
	err := a.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts `+where, arg,
	).Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordHash,
		&acc.GoogleSubject,
		&role,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.SignupRole = model.Role(role)
	return &acc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
