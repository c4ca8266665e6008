package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "42P01"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
}

func TestSchema_UpgradesMetadataColumn(t *testing.T) {
	last := schema[len(schema)-1]
	assert.Contains(t, last, "add column if not exists metadata jsonb")
}

// =========================================================================
// INTEGRATION TESTS (need a real PostgreSQL)
// =========================================================================

// newTestDB connects to PARTNERZ_TEST_DATABASE_URL and migrates it. Each test
// uses fresh IDs, so runs don't interfere with each other.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("PARTNERZ_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PARTNERZ_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestProfileLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := xid.New().String()

	_, err := db.GetByID(ctx, id)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	stored, err := db.Insert(ctx, model.NewProfile(id, "a@x.com", model.RoleAffiliate))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.RoleAffiliate, stored.Role)
	assert.False(t, stored.OnboardingComplete)
	assert.False(t, stored.CreatedAt.IsZero())

	_, err = db.Insert(ctx, model.NewProfile(id, "a@x.com", model.RoleSaaS))
	require.ErrorIs(t, err, apperror.ErrConflict)

	done := true
	require.NoError(t, db.Update(ctx, id, model.ProfileUpdate{
		OnboardingComplete: &done,
		Metadata:           map[string]any{"currency": "EUR"},
	}))

	got, err := db.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.OnboardingComplete)
	assert.Equal(t, "EUR", got.Metadata["currency"])
}

func TestMissingRelationMessage(t *testing.T) {
	db := newTestDB(t)

	_, err := db.conn.ExecContext(context.Background(), `SELECT 1 FROM public.no_such_profiles`)
	require.Error(t, err)
	msg := strings.ToLower(err.Error())
	assert.Contains(t, msg, "relation")
	assert.Contains(t, msg, "does not exist")
}

func TestAffiliateProfileArrays(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := xid.New().String()

	require.NoError(t, db.CreateAffiliateProfile(ctx, &model.AffiliateProfile{
		UserID:   userID,
		FullName: "Ada",
		Niches:   []string{"SaaS", "AI"},
		Socials:  model.Socials{Website: "https://ada.dev"},
		Currency: "USD",
	}))

	got, err := db.GetAffiliateProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"SaaS", "AI"}, got.Niches)
	assert.Equal(t, "https://ada.dev", got.Socials.Website)
	assert.Empty(t, got.PreferredSaaS)
}

func TestAccountUpsertGoogle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	accounts := db.Accounts()
	email := xid.New().String() + "@x.com"

	created := &model.Account{Email: email, PasswordHash: "hash", SignupRole: model.RoleSaaS}
	require.NoError(t, accounts.Create(ctx, created))

	linked, err := accounts.UpsertGoogle(ctx, "sub-"+created.ID, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, linked.ID)

	again, err := accounts.UpsertGoogle(ctx, "sub-"+created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}
