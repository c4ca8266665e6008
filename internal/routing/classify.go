package routing

import (
	"strings"
)

// Classification is the bucket an error falls into for display.
type Classification string

const (
	SchemaMissing  Classification = "SCHEMA_MISSING"
	SchemaOutdated Classification = "SCHEMA_OUTDATED"
	Generic        Classification = "GENERIC"
)

// Remediation statements shown on the schema error screens. They are
// equivalent to what `partnerz migrate` runs against PostgreSQL.
const (
	createProfilesSQL = `create table public.profiles (
  id text not null primary key,
  email text,
  role text check (role in ('SAAS', 'AFFILIATE')),
  onboarding_complete boolean default false,
  metadata jsonb default '{}'::jsonb,
  created_at timestamp with time zone default timezone('utc'::text, now()) not null
);`

	addMetadataColumnSQL = `alter table public.profiles add column if not exists metadata jsonb default '{}'::jsonb;`
)

const genericMessage = "An unexpected error occurred while loading your profile."

// rule is one (predicate, result) pair over the lowercased error text.
type rule struct {
	class Classification
	match func(msg string) bool
	build func() FatalError
}

// rules is a best-effort heuristic, evaluated in order; the first match wins.
// It is not meant to recognize every schema problem.
//
// The column rule comes first: PostgreSQL reports a missing column as
// `column "metadata" of relation "profiles" does not exist`, which would
// otherwise also match the missing-table rule.
var rules = []rule{
	{
		class: SchemaOutdated,
		match: func(msg string) bool {
			return strings.Contains(msg, "metadata") && strings.Contains(msg, "column")
		},
		build: func() FatalError {
			return FatalError{
				Title:       "Database Schema Update Required",
				Message:     "Your 'profiles' table is missing the 'metadata' column. This is required for the new affiliate features.",
				Remediation: addMetadataColumnSQL,
			}
		},
	},
	{
		class: SchemaMissing,
		match: func(msg string) bool {
			return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
				strings.Contains(msg, "no such table")
		},
		build: func() FatalError {
			return FatalError{
				Title:       "Database Setup Required",
				Message:     "The 'profiles' table is missing. Run `partnerz migrate` or the SQL setup script below.",
				Remediation: createProfilesSQL,
			}
		},
	},
}

// Classify converts any routing failure into its display descriptor.
func Classify(err error) (Classification, FatalError) {
	if err == nil {
		return Generic, FatalError{Title: "Login Error", Message: genericMessage}
	}

	raw := err.Error()
	msg := strings.ToLower(raw)
	for _, r := range rules {
		if r.match(msg) {
			return r.class, r.build()
		}
	}

	if raw == "" {
		raw = genericMessage
	}
	return Generic, FatalError{Title: "Login Error", Message: raw}
}
