package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"communitychat/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	meta, err := json.Marshal(u.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastSignInAt.IsZero() {
		u.LastSignInAt = now
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, role, metadata, created_at, last_sign_in_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.HashedPassword, u.Role, string(meta), u.CreatedAt, u.LastSignInAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u := &domain.User{}
	var meta string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, hashed_password, role, metadata, created_at, last_sign_in_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Role, &meta, &u.CreatedAt, &u.LastSignInAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &u.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if u.Metadata == nil {
		u.Metadata = map[string]any{}
	}
	return u, nil
}

// MergeMetadata reads, merges in Go, and writes back; SQLite lacks the
// jsonb concatenation the postgres repo uses.
func (r *UserRepo) MergeMetadata(ctx context.Context, id string, patch map[string]any) (*domain.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	for k, v := range patch {
		u.Metadata[k] = v
	}
	meta, err := json.Marshal(u.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET metadata = ? WHERE id = ?`, string(meta), id); err != nil {
		return nil, fmt.Errorf("merge metadata: %w", err)
	}
	return u, nil
}

func (r *UserRepo) SetRole(ctx context.Context, id, role string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (r *UserRepo) SetLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_sign_in_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("set last sign in: %w", err)
	}
	return nil
}
