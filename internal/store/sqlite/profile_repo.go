package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"communitychat/internal/domain"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

var _ domain.ProfileRepository = (*ProfileRepo)(nil)

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	p := &domain.Profile{}
	var status sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, avatar_url, status, updated_at
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.AvatarURL, &status, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if status.Valid {
		p.Status = &status.String
	}
	return p, nil
}

func (r *ProfileRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, avatar_url, status, updated_at
		FROM profiles WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	var res []*domain.Profile
	for rows.Next() {
		p := &domain.Profile{}
		var status sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarURL, &status, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if status.Valid {
			p.Status = &status.String
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, avatar_url, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
		    avatar_url = excluded.avatar_url,
		    status = excluded.status,
		    updated_at = excluded.updated_at
	`, p.ID, p.Name, p.AvatarURL, p.Status, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) ListWithAccounts(ctx context.Context) ([]*domain.ProfileWithAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.avatar_url, p.status, p.updated_at,
		       u.email, u.metadata, u.last_sign_in_at
		FROM profiles p
		JOIN users u ON u.id = p.id
		ORDER BY p.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var res []*domain.ProfileWithAccount
	for rows.Next() {
		pa := &domain.ProfileWithAccount{}
		var (
			status sql.NullString
			meta   string
		)
		if err := rows.Scan(
			&pa.ID, &pa.Name, &pa.AvatarURL, &status, &pa.UpdatedAt,
			&pa.Email, &meta, &pa.LastSignInAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		if status.Valid {
			pa.Status = &status.String
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &pa.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		res = append(res, pa)
	}
	return res, rows.Err()
}
