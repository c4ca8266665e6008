package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/partnerz/internal/apperror"
	"github.com/sakif/partnerz/internal/model"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
// t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestProfile(t *testing.T, db *DB, id string, role model.Role) *model.Profile {
	t.Helper()
	p, err := db.Insert(context.Background(), model.NewProfile(id, id+"@example.com", role))
	if err != nil {
		t.Fatalf("failed to insert test profile: %v", err)
	}
	return p
}

// =========================================================================
// INSERT TESTS
// =========================================================================

func TestInsert(t *testing.T) {
	db := newTestDB(t)

	stored, err := db.Insert(context.Background(), model.NewProfile("u1", "a@x.com", model.RoleAffiliate))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if stored == nil {
		t.Fatal("Insert() returned nil profile")
	}

	if stored.ID != "u1" {
		t.Errorf("ID = %q, want %q", stored.ID, "u1")
	}
	if stored.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", stored.Email, "a@x.com")
	}
	if stored.Role != model.RoleAffiliate {
		t.Errorf("Role = %q, want %q", stored.Role, model.RoleAffiliate)
	}
	if stored.OnboardingComplete {
		t.Error("new profile should not be onboarded")
	}
	if stored.Metadata == nil || len(stored.Metadata) != 0 {
		t.Errorf("Metadata = %v, want empty map", stored.Metadata)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestInsert_Duplicate(t *testing.T) {
	db := newTestDB(t)
	insertTestProfile(t, db, "u1", model.RoleSaaS)

	_, err := db.Insert(context.Background(), model.NewProfile("u1", "other@x.com", model.RoleAffiliate))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Insert() duplicate error = %v, want ErrConflict", err)
	}
}

func TestInsert_RejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Insert(context.Background(), model.NewProfile("u1", "a@x.com", model.Role("ADMIN")))
	if err == nil {
		t.Fatal("Insert() should reject a role outside the CHECK constraint")
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	insertTestProfile(t, db, "u1", model.RoleSaaS)

	got, err := db.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Role != model.RoleSaaS {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleSaaS)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// A missing table must surface as a driver error, never as "not found";
// otherwise the caller would try to create a profile in a table that isn't there.
func TestGetByID_MissingTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.conn.Exec(`DROP TABLE profiles`); err != nil {
		t.Fatalf("dropping table: %v", err)
	}

	_, err := db.GetByID(context.Background(), "u1")
	if err == nil {
		t.Fatal("GetByID() should fail without a profiles table")
	}
	if errors.Is(err, apperror.ErrNotFound) {
		t.Fatal("missing table reported as ErrNotFound")
	}
	if !strings.Contains(err.Error(), "no such table") {
		t.Errorf("error = %q, want the driver's 'no such table' text", err)
	}
}

func TestGetByID_MissingMetadataColumn(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.conn.Exec(`ALTER TABLE profiles DROP COLUMN metadata`); err != nil {
		t.Fatalf("dropping column: %v", err)
	}

	_, err := db.GetByID(context.Background(), "u1")
	if err == nil {
		t.Fatal("GetByID() should fail without a metadata column")
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "metadata") || !strings.Contains(msg, "column") {
		t.Errorf("error = %q, want it to name the metadata column", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	insertTestProfile(t, db, "u1", model.RoleAffiliate)

	done := true
	err := db.Update(context.Background(), "u1", model.ProfileUpdate{
		OnboardingComplete: &done,
		Metadata:           map[string]any{"currency": "EUR"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.OnboardingComplete {
		t.Error("OnboardingComplete not persisted")
	}
	if got.Metadata["currency"] != "EUR" {
		t.Errorf("Metadata = %v, want currency EUR", got.Metadata)
	}
	if got.Role != model.RoleAffiliate {
		t.Errorf("Role changed to %q", got.Role)
	}
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	db := newTestDB(t)
	insertTestProfile(t, db, "u1", model.RoleSaaS)

	if err := db.Update(context.Background(), "u1", model.ProfileUpdate{
		Metadata: map[string]any{"plan": "pro"},
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := db.GetByID(context.Background(), "u1")
	if got.OnboardingComplete {
		t.Error("metadata-only update flipped OnboardingComplete")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	done := true
	err := db.Update(context.Background(), "missing", model.ProfileUpdate{OnboardingComplete: &done})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUpdate_EmptyIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.Update(context.Background(), "missing", model.ProfileUpdate{}); err != nil {
		t.Fatalf("Update() with no fields error = %v, want nil", err)
	}
}
