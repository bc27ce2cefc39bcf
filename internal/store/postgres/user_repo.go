package postgres

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
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, hashed_password, role, metadata, created_at, last_sign_in_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, last_sign_in_at
	`, u.ID, u.Email, u.HashedPassword, u.Role, meta).Scan(&u.CreatedAt, &u.LastSignInAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u := &domain.User{}
	var meta []byte
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
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &u.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if u.Metadata == nil {
		u.Metadata = map[string]any{}
	}
	return u, nil
}

// MergeMetadata merges the patch into the stored metadata object with
// jsonb concatenation, which keeps keys absent from the patch.
func (r *UserRepo) MergeMetadata(ctx context.Context, id string, patch map[string]any) (*domain.User, error) {
	patched, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode metadata patch: %w", err)
	}

	u := &domain.User{}
	var meta []byte
	err = r.db.QueryRowContext(ctx, `
		UPDATE users SET metadata = metadata || $2::jsonb
		WHERE id = $1
		RETURNING id, email, hashed_password, role, metadata, created_at, last_sign_in_at
	`, id, patched).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Role, &meta, &u.CreatedAt, &u.LastSignInAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("merge metadata: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &u.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return u, nil
}

func (r *UserRepo) SetRole(ctx context.Context, id, role string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (r *UserRepo) SetLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_sign_in_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("set last sign in: %w", err)
	}
	return nil
}
