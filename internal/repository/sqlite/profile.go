package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

// compile-time check that *DB implements repository.ProfileRepository
var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, email, role, onboarding_complete, metadata, created_at`

// GetByID returns the profile for a user, or apperror.ErrNotFound.
//
// Any other failure (missing table, missing column, I/O) is returned wrapped
// with the driver's message, which the routing classifier inspects.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return p, nil
}

// Insert stores a new profile and returns the row as read back.
//
// A row that cannot be read back after a successful insert yields (nil, nil);
// callers treat that as an integrity failure rather than a missing profile.
func (db *DB) Insert(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	metadata := profile.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding profile metadata: %w", err)
	}

	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, email, role, onboarding_complete, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Email,
		string(profile.Role),
		profile.OnboardingComplete,
		string(raw),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("profile", profile.ID)
		}
		return nil, fmt.Errorf("sqlite: inserting profile %s: %w", profile.ID, err)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, profile.ID)
	stored, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: reading back profile %s: %w", profile.ID, err)
	}
	return stored, nil
}

// Update applies a partial update. Only the non-nil fields are written.
func (db *DB) Update(ctx context.Context, id string, fields model.ProfileUpdate) error {
	if fields.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if fields.OnboardingComplete != nil {
		sets = append(sets, "onboarding_complete = ?")
		args = append(args, *fields.OnboardingComplete)
	}
	if fields.Metadata != nil {
		raw, err := json.Marshal(fields.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: encoding profile metadata: %w", err)
		}
		sets = append(sets, "metadata = ?")
		args = append(args, string(raw))
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", id)
	}
	return nil
}

// scanProfile reads one profile row. metadata is stored as JSON text.
func scanProfile(row *sql.Row) (*model.Profile, error) {
	var (
		p    model.Profile
		role string
		meta string
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.OnboardingComplete, &meta, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = model.Role(role)

	p.Metadata = map[string]any{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &p, nil
}

// isUniqueViolation matches SQLite's constraint error text.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}
