package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the chat schema on PostgreSQL.
// IDs are application-generated uuid strings, stored as VARCHAR(36) so both
// stores share query shapes.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Accounts
		`CREATE TABLE IF NOT EXISTS users (
			id              VARCHAR(36)  PRIMARY KEY,
			email           VARCHAR(255) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			role            VARCHAR(10)  NOT NULL DEFAULT 'user',
			metadata        JSONB        NOT NULL DEFAULT '{}',
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_sign_in_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Channels
		`CREATE TABLE IF NOT EXISTS channels (
			id          VARCHAR(36)  PRIMARY KEY,
			name        VARCHAR(100) NOT NULL,
			description TEXT,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Messages (immutable)
		`CREATE TABLE IF NOT EXISTS messages (
			id         VARCHAR(36) PRIMARY KEY,
			channel_id VARCHAR(36) NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			user_id    VARCHAR(36) NOT NULL REFERENCES users(id),
			content    TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Public profiles, id equals the account id
		`CREATE TABLE IF NOT EXISTS profiles (
			id         VARCHAR(36)  PRIMARY KEY REFERENCES users(id),
			name       VARCHAR(100) NOT NULL,
			avatar_url TEXT         NOT NULL DEFAULT '',
			status     TEXT,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Last-visit markers
		`CREATE TABLE IF NOT EXISTS channel_visits (
			user_id         VARCHAR(36) NOT NULL REFERENCES users(id),
			channel_id      VARCHAR(36) NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			last_visited_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, channel_id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON channels(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_channel_visits_user ON channel_visits(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
