package postgres

// schema is applied by Migrate. Every statement is idempotent.
//
// The last statement upgrades databases created before profiles.metadata
// existed; it is the same statement the routing error screen shows.
var schema = []string{
	`create table if not exists public.accounts (
		id             text primary key,
		email          text not null unique,
		password_hash  text not null default '',
		google_subject text unique,
		signup_role    text not null default '',
		created_at     timestamp with time zone default timezone('utc'::text, now()) not null,
		updated_at     timestamp with time zone default timezone('utc'::text, now()) not null
	)`,
	`create table if not exists public.profiles (
		id                  text not null primary key,
		email               text,
		role                text check (role in ('SAAS', 'AFFILIATE')),
		onboarding_complete boolean default false,
		metadata            jsonb default '{}'::jsonb,
		created_at          timestamp with time zone default timezone('utc'::text, now()) not null
	)`,
	`create table if not exists public.saas_programs (
		id               text primary key,
		user_id          text not null,
		name             text not null,
		description      text,
		commission_type  text,
		commission_value numeric,
		cookie_days      integer,
		is_recurring     boolean default false,
		stripe_connected boolean default false,
		created_at       timestamp with time zone default timezone('utc'::text, now()) not null
	)`,
	`create index if not exists saas_programs_user_id_idx on public.saas_programs (user_id)`,
	`create table if not exists public.affiliate_profiles (
		id               text primary key,
		user_id          text not null unique,
		full_name        text,
		public_name      text,
		bio              text,
		niches           text[],
		traffic_sources  text[],
		social_links     jsonb default '{}'::jsonb,
		audience_stats   jsonb default '{}'::jsonb,
		preferred_saas   text[],
		currency         text,
		stripe_connected boolean default false,
		created_at       timestamp with time zone default timezone('utc'::text, now()) not null
	)`,
	`alter table public.profiles add column if not exists metadata jsonb default '{}'::jsonb`,
}

// Schema returns the migration statements, for printing.
func Schema() []string {
	return append([]string(nil), schema...)
}
