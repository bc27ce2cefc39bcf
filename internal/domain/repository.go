package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// MergeMetadata merges patch into the user's metadata object, keeping
	// keys not present in patch.
	MergeMetadata(ctx context.Context, id string, patch map[string]any) (*User, error)
	SetRole(ctx context.Context, id, role string) error
	SetLastSignIn(ctx context.Context, id string, at time.Time) error
}

// ChannelRepository defines persistence operations for channels.
type ChannelRepository interface {
	Create(ctx context.Context, c *Channel) error
	GetByID(ctx context.Context, id string) (*Channel, error)
	// List returns all channels ordered by creation time ascending.
	List(ctx context.Context) ([]*Channel, error)
	Update(ctx context.Context, c *Channel) (bool, error)
	// Delete removes a channel and its messages and visits. Deleting an
	// absent channel is a no-op.
	Delete(ctx context.Context, id string) error
	// Search matches the term case-insensitively against name and
	// description, ordered by name.
	Search(ctx context.Context, term string) ([]*Channel, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListForChannel returns up to limit most recent messages joined with
	// author profiles, newest first.
	ListForChannel(ctx context.Context, channelID string, limit int) ([]*MessageWithAuthor, error)
	// CountSince counts messages created strictly after since.
	CountSince(ctx context.Context, channelID string, since time.Time) (int, error)
	// ListSince returns up to limit messages created strictly after since,
	// newest first, each with its author's display name resolved.
	ListSince(ctx context.Context, channelID string, since time.Time, limit int) ([]MessagePreview, error)
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	// ListWithAccounts joins every profile with its account, ordered by
	// profile update time descending.
	ListWithAccounts(ctx context.Context) ([]*ProfileWithAccount, error)
}

// VisitRepository defines persistence operations for channel visits.
type VisitRepository interface {
	ListForUser(ctx context.Context, userID string) ([]*ChannelVisit, error)
	Upsert(ctx context.Context, userID, channelID string, at time.Time) error
}
