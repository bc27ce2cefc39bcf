package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
	"communitychat/internal/presence"
)

// avatarURLTemplate seeds a deterministic placeholder avatar per user.
const avatarURLTemplate = "https://api.dicebear.com/7.x/fun-emoji/svg?seed=%s&backgroundColor=b6e3f4,c0aede,d1d4f9&radius=50"

// MessageService lists and posts channel messages.
type MessageService struct {
	channels domain.ChannelRepository
	messages domain.MessageRepository
	profiles domain.ProfileRepository

	pageSize int
}

func NewMessageService(
	channels domain.ChannelRepository,
	messages domain.MessageRepository,
	profiles domain.ProfileRepository,
	pageSize int,
) *MessageService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MessageService{
		channels: channels,
		messages: messages,
		profiles: profiles,
		pageSize: pageSize,
	}
}

// ListForChannel returns up to the page size of messages in chronological
// order, each joined with its author's profile.
func (s *MessageService) ListForChannel(ctx context.Context, channelID string) ([]*domain.MessageWithAuthor, error) {
	if channelID == "" {
		return nil, apperr.InvalidArg("Channel ID is required")
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if ch == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	msgs, err := s.messages.ListForChannel(ctx, channelID, s.pageSize)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	// Reverse to chronological order (DB returns newest first)
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Post creates a message for the user, lazily creating the user's profile
// on first post. Content must be non-empty after trimming; messages are
// immutable once stored.
func (s *MessageService) Post(ctx context.Context, channelID, content string, user *domain.User) (*domain.MessageWithAuthor, error) {
	if user == nil {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	if channelID == "" {
		return nil, apperr.InvalidArg("Channel ID is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidArg("Message content is required")
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if ch == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		UserID:    user.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperr.Upstream(err)
	}

	return &domain.MessageWithAuthor{Message: *msg, User: profile}, nil
}

// ensureProfile returns the user's profile, creating one with a default
// name (email local-part) and a seeded placeholder avatar when absent.
func (s *MessageService) ensureProfile(ctx context.Context, user *domain.User) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if profile != nil {
		return profile, nil
	}

	name := presence.EmailLocalPart(user.Email)
	if name == "" {
		name = "Anonymous"
	}
	profile = &domain.Profile{
		ID:        user.ID,
		Name:      name,
		AvatarURL: fmt.Sprintf(avatarURLTemplate, user.ID),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, apperr.Upstream(err)
	}
	return profile, nil
}
