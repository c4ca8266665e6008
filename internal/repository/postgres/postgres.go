// Package postgres implements the repository interfaces on PostgreSQL using
// sqlx and the lib/pq driver.
//
// Unlike the sqlite backend, opening a database here does NOT create tables.
// Shared databases are migrated explicitly (`partnerz migrate`), and a server
// pointed at an unmigrated database reports the missing schema to the user
// instead of silently creating it.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/xid"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DB implements repository.Store on a sqlx connection pool.
type DB struct {
	conn *sqlx.DB
}

var _ repository.Store = (*DB)(nil)

// Open connects to the database at dsn and pings it.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return &DB{conn: conn}, nil
}

// NewFromConn wraps an existing pool.
func NewFromConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Migrate applies the schema in one transaction.
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: starting migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrating: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Accounts() repository.AccountRepository {
	return &AccountDB{conn: db.conn}
}

// =========================================================================
// PROFILES
// =========================================================================

type profileRow struct {
	ID                 string    `db:"id"`
	Email              string    `db:"email"`
	Role               string    `db:"role"`
	OnboardingComplete bool      `db:"onboarding_complete"`
	Metadata           []byte    `db:"metadata"`
	CreatedAt          time.Time `db:"created_at"`
}

func (r profileRow) toModel() (*model.Profile, error) {
	p := &model.Profile{
		ID:                 r.ID,
		Email:              r.Email,
		Role:               model.Role(r.Role),
		OnboardingComplete: r.OnboardingComplete,
		Metadata:           map[string]any{},
		CreatedAt:          r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return p, nil
}

const selectProfile = `
	SELECT id, coalesce(email, '') AS email, coalesce(role, '') AS role,
	       coalesce(onboarding_complete, false) AS onboarding_complete,
	       coalesce(metadata, '{}'::jsonb) AS metadata, created_at
	FROM public.profiles`

// GetByID returns the profile for a user, or apperror.ErrNotFound. Driver
// errors such as `relation "public.profiles" does not exist` pass through.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var row profileRow
	err := db.conn.GetContext(ctx, &row, selectProfile+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("postgres: getting profile %s: %w", id, err)
	}
	return row.toModel()
}

// Insert stores a new profile and returns it via RETURNING. A statement that
// succeeds but returns no row yields (nil, nil).
func (db *DB) Insert(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	metadata := profile.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("postgres: encoding profile metadata: %w", err)
	}

	var row profileRow
	err = db.conn.GetContext(ctx, &row, `
		INSERT INTO public.profiles (id, email, role, onboarding_complete, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, coalesce(email, '') AS email, coalesce(role, '') AS role,
		          coalesce(onboarding_complete, false) AS onboarding_complete,
		          coalesce(metadata, '{}'::jsonb) AS metadata, created_at`,
		profile.ID, profile.Email, string(profile.Role), profile.OnboardingComplete, raw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("profile", profile.ID)
		}
		return nil, fmt.Errorf("postgres: inserting profile %s: %w", profile.ID, err)
	}
	return row.toModel()
}

// Update applies a partial update. Only non-nil fields are written.
func (db *DB) Update(ctx context.Context, id string, fields model.ProfileUpdate) error {
	if fields.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if fields.OnboardingComplete != nil {
		args = append(args, *fields.OnboardingComplete)
		sets = append(sets, fmt.Sprintf("onboarding_complete = $%d", len(args)))
	}
	if fields.Metadata != nil {
		raw, err := json.Marshal(fields.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: encoding profile metadata: %w", err)
		}
		args = append(args, raw)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, fmt.Sprintf(
		`UPDATE public.profiles SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args),
	), args...)
	if err != nil {
		return fmt.Errorf("postgres: updating profile %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", id)
	}
	return nil
}

// =========================================================================
// PROGRAMS & AFFILIATE PROFILES
// =========================================================================

func (db *DB) CreateProgram(ctx context.Context, p *model.SaaSProgram) error {
	p.ID = xid.New().String()
	err := db.conn.GetContext(ctx, &p.CreatedAt, `
		INSERT INTO public.saas_programs
		  (id, user_id, name, description, commission_type, commission_value,
		   cookie_days, is_recurring, stripe_connected)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		p.ID, p.UserID, p.Name, p.Description, string(p.CommissionType), p.CommissionValue,
		p.CookieDays, p.IsRecurring, p.StripeConnected,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting program for %s: %w", p.UserID, err)
	}
	return nil
}

type programRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Name            string    `db:"name"`
	Description     string    `db:"description"`
	CommissionType  string    `db:"commission_type"`
	CommissionValue float64   `db:"commission_value"`
	CookieDays      int       `db:"cookie_days"`
	IsRecurring     bool      `db:"is_recurring"`
	StripeConnected bool      `db:"stripe_connected"`
	CreatedAt       time.Time `db:"created_at"`
}

func (db *DB) ListPrograms(ctx context.Context, userID string) ([]model.SaaSProgram, error) {
	var rows []programRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, coalesce(description, '') AS description,
		       coalesce(commission_type, '') AS commission_type,
		       coalesce(commission_value, 0)::float8 AS commission_value,
		       coalesce(cookie_days, 0) AS cookie_days,
		       coalesce(is_recurring, false) AS is_recurring,
		       coalesce(stripe_connected, false) AS stripe_connected, created_at
		FROM public.saas_programs WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing programs for %s: %w", userID, err)
	}

	programs := make([]model.SaaSProgram, 0, len(rows))
	for _, r := range rows {
		programs = append(programs, model.SaaSProgram{
			ID:              r.ID,
			UserID:          r.UserID,
			Name:            r.Name,
			Description:     r.Description,
			CommissionType:  model.CommissionType(r.CommissionType),
			CommissionValue: r.CommissionValue,
			CookieDays:      r.CookieDays,
			IsRecurring:     r.IsRecurring,
			StripeConnected: r.StripeConnected,
			CreatedAt:       r.CreatedAt,
		})
	}
	return programs, nil
}

func (db *DB) CreateAffiliateProfile(ctx context.Context, a *model.AffiliateProfile) error {
	socials, err := json.Marshal(a.Socials)
	if err != nil {
		return fmt.Errorf("postgres: encoding socials: %w", err)
	}
	audience, err := json.Marshal(a.Audience)
	if err != nil {
		return fmt.Errorf("postgres: encoding audience: %w", err)
	}

	a.ID = xid.New().String()
	err = db.conn.GetContext(ctx, &a.CreatedAt, `
		INSERT INTO public.affiliate_profiles
		  (id, user_id, full_name, public_name, bio, niches, traffic_sources,
		   social_links, audience_stats, preferred_saas, currency, stripe_connected)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		a.ID, a.UserID, a.FullName, a.PublicName, a.Bio,
		pq.Array(nonNil(a.Niches)), pq.Array(nonNil(a.TrafficSources)),
		socials, audience, pq.Array(nonNil(a.PreferredSaaS)),
		a.Currency, a.StripeConnected,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("affiliate profile", a.UserID)
		}
		return fmt.Errorf("postgres: inserting affiliate profile for %s: %w", a.UserID, err)
	}
	return nil
}

func (db *DB) GetAffiliateProfile(ctx context.Context, userID string) (*model.AffiliateProfile, error) {
	var (
		a                 model.AffiliateProfile
		socials, audience []byte
	)
	err := db.conn.QueryRowxContext(ctx, `
		SELECT id, user_id, coalesce(full_name, ''), coalesce(public_name, ''), coalesce(bio, ''),
		       coalesce(niches, '{}'), coalesce(traffic_sources, '{}'),
		       coalesce(social_links, '{}'::jsonb), coalesce(audience_stats, '{}'::jsonb),
		       coalesce(preferred_saas, '{}'), coalesce(currency, ''),
		       coalesce(stripe_connected, false), created_at
		FROM public.affiliate_profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&a.ID, &a.UserID, &a.FullName, &a.PublicName, &a.Bio,
		pq.Array(&a.Niches), pq.Array(&a.TrafficSources),
		&socials, &audience,
		pq.Array(&a.PreferredSaaS), &a.Currency,
		&a.StripeConnected, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("affiliate profile", userID)
		}
		return nil, fmt.Errorf("postgres: getting affiliate profile %s: %w", userID, err)
	}
	if err := json.Unmarshal(socials, &a.Socials); err != nil {
		return nil, fmt.Errorf("postgres: decoding socials: %w", err)
	}
	if err := json.Unmarshal(audience, &a.Audience); err != nil {
		return nil, fmt.Errorf("postgres: decoding audience: %w", err)
	}
	return &a, nil
}

// =========================================================================
// ACCOUNTS
// =========================================================================

// AccountDB implements repository.AccountRepository.
type AccountDB struct {
	conn *sqlx.DB
}

var _ repository.AccountRepository = (*AccountDB)(nil)

type accountRow struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	GoogleSubject string    `db:"google_subject"`
	SignupRole    string    `db:"signup_role"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r accountRow) toModel() *model.Account {
	return &model.Account{
		ID:            r.ID,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		GoogleSubject: r.GoogleSubject,
		SignupRole:    model.Role(r.SignupRole),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

const selectAccount = `
	SELECT id, email, password_hash, coalesce(google_subject, '') AS google_subject,
	       signup_role, created_at, updated_at
	FROM public.accounts`

func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = uuid.NewString()
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	account.CreatedAt = now
	account.UpdatedAt = now

	var subject sql.NullString
	if account.GoogleSubject != "" {
		subject = sql.NullString{String: account.GoogleSubject, Valid: true}
	}

	_, err := a.conn.ExecContext(ctx, `
		INSERT INTO public.accounts
		  (id, email, password_hash, google_subject, signup_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.Email, account.PasswordHash, subject,
		string(account.SignupRole), account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("postgres: inserting account %s: %w", account.Email, err)
	}
	return nil
}

func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return a.getOne(ctx, "id", id)
}

func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return a.getOne(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// UpsertGoogle links a Google identity the same way the sqlite backend does:
// by subject, then by email, then by creating a new account.
func (a *AccountDB) UpsertGoogle(ctx context.Context, subject, email string) (*model.Account, error) {
	acc, err := a.getOne(ctx, "google_subject", subject)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if email != "" {
		acc, err = a.GetByEmail(ctx, email)
		switch {
		case err == nil:
			acc.GoogleSubject = subject
			acc.UpdatedAt = time.Now().UTC()
			if _, err := a.conn.ExecContext(ctx,
				`UPDATE public.accounts SET google_subject = $1, updated_at = $2 WHERE id = $3`,
				subject, acc.UpdatedAt, acc.ID,
			); err != nil {
				return nil, fmt.Errorf("postgres: linking google subject to %s: %w", acc.ID, err)
			}
			return acc, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, err
		}
	}

	acc = &model.Account{Email: email, GoogleSubject: subject}
	if err := a.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// getOne looks an account up by one column. column is never user input.
func (a *AccountDB) getOne(ctx context.Context, column, value string) (*model.Account, error) {
	var row accountRow
	err := a.conn.GetContext(ctx, &row, selectAccount+` WHERE `+column+` = $1`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("postgres: getting account by %s: %w", column, err)
	}
	return row.toModel(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
