package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"communitychat/internal/domain"
)

type ChannelRepo struct {
	db *sql.DB
}

func NewChannelRepo(db *sql.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

var _ domain.ChannelRepository = (*ChannelRepo)(nil)

func (r *ChannelRepo) Create(ctx context.Context, c *domain.Channel) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO channels (id, name, description, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`, c.ID, c.Name, c.Description).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	c := &domain.Channel{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM channels WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return c, nil
}

func (r *ChannelRepo) List(ctx context.Context) ([]*domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM channels
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepo) Update(ctx context.Context, c *domain.Channel) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE channels SET name = $2, description = $3 WHERE id = $1
	`, c.ID, c.Name, c.Description)
	if err != nil {
		return false, fmt.Errorf("update channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update channel rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes the channel with its messages and visits. Zero affected
// rows is not an error, so repeated deletes are no-ops.
func (r *ChannelRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE channel_id = $1`, id); err != nil {
		return fmt.Errorf("delete channel messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channel_visits WHERE channel_id = $1`, id); err != nil {
		return fmt.Errorf("delete channel visits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return tx.Commit()
}

func (r *ChannelRepo) Search(ctx context.Context, term string) ([]*domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM channels
		WHERE name ILIKE '%' || $1 || '%'
		   OR description ILIKE '%' || $1 || '%'
		ORDER BY name
	`, term)
	if err != nil {
		return nil, fmt.Errorf("search channels: %w", err)
	}
	defer rows.Close()
	return scanChannels(rows)
}

func scanChannels(rows *sql.Rows) ([]*domain.Channel, error) {
	var res []*domain.Channel
	for rows.Next() {
		c := &domain.Channel{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
