package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communitychat/internal/domain"
)

type VisitRepo struct {
	db *sql.DB
}

func NewVisitRepo(db *sql.DB) *VisitRepo {
	return &VisitRepo{db: db}
}

var _ domain.VisitRepository = (*VisitRepo)(nil)

func (r *VisitRepo) ListForUser(ctx context.Context, userID string) ([]*domain.ChannelVisit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, channel_id, last_visited_at
		FROM channel_visits WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var res []*domain.ChannelVisit
	for rows.Next() {
		v := &domain.ChannelVisit{}
		if err := rows.Scan(&v.UserID, &v.ChannelID, &v.LastVisitedAt); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r *VisitRepo) Upsert(ctx context.Context, userID, channelID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channel_visits (user_id, channel_id, last_visited_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO UPDATE
		SET last_visited_at = excluded.last_visited_at
	`, userID, channelID, at)
	if err != nil {
		return fmt.Errorf("upsert visit: %w", err)
	}
	return nil
}
