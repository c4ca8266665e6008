package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
	"github.com/sakif/partnerz/internal/repository"
)

var (
	_ repository.ProgramRepository   = (*DB)(nil)
	_ repository.AffiliateRepository = (*DB)(nil)
)

// CreateProgram inserts a SaaS program. ID and CreatedAt are set here.
func (db *DB) CreateProgram(ctx context.Context, p *model.SaaSProgram) error {
	p.ID = xid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO saas_programs
		   (id, user_id, name, description, commission_type, commission_value,
		    cookie_days, is_recurring, stripe_connected, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		string(p.CommissionType),
		p.CommissionValue,
		p.CookieDays,
		p.IsRecurring,
		p.StripeConnected,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting program for %s: %w", p.UserID, err)
	}
	return nil
}

// ListPrograms returns a user's programs, newest first.
func (db *DB) ListPrograms(ctx context.Context, userID string) ([]model.SaaSProgram, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, description, commission_type, commission_value,
		        cookie_days, is_recurring, stripe_connected, created_at
		 FROM saas_programs WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing programs for %s: %w", userID, err)
	}
	defer rows.Close()

	programs := []model.SaaSProgram{}
	for rows.Next() {
		var (
			p  model.SaaSProgram
			ct string
		)
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Description, &ct, &p.CommissionValue,
			&p.CookieDays, &p.IsRecurring, &p.StripeConnected, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning program: %w", err)
		}
		p.CommissionType = model.CommissionType(ct)
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating programs: %w", err)
	}
	return programs, nil
}

// CreateAffiliateProfile inserts the affiliate's onboarding record.
// A second record for the same user returns ErrConflict.
func (db *DB) CreateAffiliateProfile(ctx context.Context, a *model.AffiliateProfile) error {
	a.ID = xid.New().String()
	a.CreatedAt = time.Now().UTC()

	enc, err := encodeJSON(a.Niches, a.TrafficSources, a.Socials, a.Audience, a.PreferredSaaS)
	if err != nil {
		return fmt.Errorf("sqlite: encoding affiliate profile: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO affiliate_profiles
		   (id, user_id, full_name, public_name, bio, niches, traffic_sources,
		    social_links, audience_stats, preferred_saas, currency, stripe_connected, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.FullName, a.PublicName, a.Bio,
		enc[0], enc[1], enc[2], enc[3], enc[4],
		a.Currency, a.StripeConnected, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("affiliate profile", a.UserID)
		}
		return fmt.Errorf("sqlite: inserting affiliate profile for %s: %w", a.UserID, err)
	}
	return nil
}

// GetAffiliateProfile returns a user's affiliate record, or ErrNotFound.
func (db *DB) GetAffiliateProfile(ctx context.Context, userID string) (*model.AffiliateProfile, error) {
	var (
		a                                         model.AffiliateProfile
		niches, sources, socials, audience, prefs string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, full_name, public_name, bio, niches, traffic_sources,
		        social_links, audience_stats, preferred_saas, currency, stripe_connected, created_at
		 FROM affiliate_profiles WHERE user_id = ?`,
		userID,
	).Scan(
		&a.ID, &a.UserID, &a.FullName, &a.PublicName, &a.Bio,
		&niches, &sources, &socials, &audience, &prefs,
		&a.Currency, &a.StripeConnected, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("affiliate profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting affiliate profile %s: %w", userID, err)
	}

	if err := decodeJSON(
		[]string{niches, sources, socials, audience, prefs},
		&a.Niches, &a.TrafficSources, &a.Socials, &a.Audience, &a.PreferredSaaS,
	); err != nil {
		return nil, fmt.Errorf("sqlite: decoding affiliate profile %s: %w", userID, err)
	}
	return &a, nil
}

// encodeJSON marshals each value to a JSON string. Nil slices become "[]".
func encodeJSON(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.([]string); ok && s == nil {
			v = []string{}
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(raw)
	}
	return out, nil
}

func decodeJSON(raw []string, targets ...any) error {
	for i, target := range targets {
		if err := json.Unmarshal([]byte(raw[i]), target); err != nil {
			return err
		}
	}
	return nil
}
