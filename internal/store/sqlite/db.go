package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations mirroring the postgres schema.
// All timestamps are written from Go in UTC so text comparisons order
// correctly.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'user',
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			last_sign_in_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(36) PRIMARY KEY,
			channel_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			avatar_url TEXT NOT NULL DEFAULT '',
			status TEXT,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS channel_visits (
			user_id VARCHAR(36) NOT NULL,
			channel_id VARCHAR(36) NOT NULL,
			last_visited_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, channel_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON channels(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_channel_visits_user ON channel_visits(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
