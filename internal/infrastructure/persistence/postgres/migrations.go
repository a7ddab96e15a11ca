package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_accounts",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_user_stats",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_xp_events",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_badge_awards",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration001Down = `DROP TABLE IF EXISTS accounts;`

const migration002Up = `
CREATE TABLE IF NOT EXISTS user_stats (
	user_id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	xp BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
	points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
	streak_days INTEGER NOT NULL DEFAULT 0 CHECK (streak_days >= 0),
	last_active_at TIMESTAMPTZ,
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_user_stats_xp ON user_stats (xp DESC, user_id ASC);
`

const migration002Down = `DROP TABLE IF EXISTS user_stats;`

const migration003Up = `
CREATE TABLE IF NOT EXISTS xp_events (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	amount INTEGER NOT NULL,
	reason TEXT NOT NULL,
	idempotency_key TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_xp_events_idempotency
	ON xp_events (user_id, idempotency_key)
	WHERE idempotency_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_xp_events_user_time ON xp_events (user_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_events_time ON xp_events (occurred_at);
`

const migration003Down = `DROP TABLE IF EXISTS xp_events;`

const migration004Up = `
CREATE TABLE IF NOT EXISTS badge_awards (
	user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	badge_id TEXT NOT NULL,
	awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, badge_id)
);
`

const migration004Down = `DROP TABLE IF EXISTS badge_awards;`
