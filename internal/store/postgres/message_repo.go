package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"communitychat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ChannelID, m.UserID, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListForChannel(ctx context.Context, channelID string, limit int) ([]*domain.MessageWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.content, m.created_at,
		       p.id, p.name, p.avatar_url, p.status, p.updated_at
		FROM messages m
		LEFT JOIN profiles p ON p.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.MessageWithAuthor
	for rows.Next() {
		m := &domain.MessageWithAuthor{}
		var (
			pID, pName, pAvatar sql.NullString
			pStatus             sql.NullString
			pUpdated            sql.NullTime
		)
		if err := rows.Scan(
			&m.ID, &m.ChannelID, &m.UserID, &m.Content, &m.CreatedAt,
			&pID, &pName, &pAvatar, &pStatus, &pUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if pID.Valid {
			m.User = &domain.Profile{
				ID:        pID.String,
				Name:      pName.String,
				AvatarURL: pAvatar.String,
				UpdatedAt: pUpdated.Time,
			}
			if pStatus.Valid {
				m.User.Status = &pStatus.String
			}
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) CountSince(ctx context.Context, channelID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE channel_id = $1 AND created_at > $2
	`, channelID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) ListSince(ctx context.Context, channelID string, since time.Time, limit int) ([]domain.MessagePreview, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.created_at,
		       COALESCE(NULLIF(p.name, ''), u.email, 'Unknown') AS author
		FROM messages m
		LEFT JOIN profiles p ON p.id = m.user_id
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1 AND m.created_at > $2
		ORDER BY m.created_at DESC
		LIMIT $3
	`, channelID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	var res []domain.MessagePreview
	for rows.Next() {
		var p domain.MessagePreview
		if err := rows.Scan(&p.ID, &p.Content, &p.CreatedAt, &p.Author); err != nil {
			return nil, fmt.Errorf("scan recent message: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
