package domain

import "time"

// User represents an authenticated account. Profiles hold the public-facing
// part; the account carries credentials, role, and raw metadata.
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	HashedPassword string         `db:"hashed_password" json:"-"`
	Role           string         `db:"role" json:"role"`
	Metadata       map[string]any `db:"metadata" json:"user_metadata"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	LastSignInAt   time.Time      `db:"last_sign_in_at" json:"last_sign_in_at"`
}

// Roles stored in the users table.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Channel is a named message board.
type Channel struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Message is immutable once created.
type Message struct {
	ID        string    `db:"id" json:"id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile is the public record for a user, created lazily on first post.
// Its ID equals the user's account ID.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	Status    *string   `db:"status" json:"status,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChannelVisit records when a user last viewed a channel.
type ChannelVisit struct {
	UserID        string    `db:"user_id" json:"user_id"`
	ChannelID     string    `db:"channel_id" json:"channel_id"`
	LastVisitedAt time.Time `db:"last_visited_at" json:"last_visited_at"`
}

// MessagePreview is a recent unread message joined with its author's display
// name, as shown in the channel list.
type MessagePreview struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
}

// ChannelOverview is the per-request derived view of a channel for one user:
// the channel itself plus unread bookkeeping. LastVisitedAt is the zero time
// when the user has never visited the channel.
type ChannelOverview struct {
	Channel
	UnreadCount    int              `json:"unread_count"`
	LastVisitedAt  time.Time        `json:"last_visited_at"`
	RecentMessages []MessagePreview `json:"recent_messages"`
}

// MessageWithAuthor is a message joined with its author's profile, or a nil
// profile when the author never created one.
type MessageWithAuthor struct {
	Message
	User *Profile `json:"user"`
}

// ProfileWithAccount joins a profile with account fields for admin listings.
type ProfileWithAccount struct {
	Profile
	Email        string         `json:"email"`
	Metadata     map[string]any `json:"raw_user_meta_data,omitempty"`
	LastSignInAt time.Time      `json:"last_sign_in_at"`
}
