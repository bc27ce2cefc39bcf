package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
)

// recentPreviewLimit is how many unread messages the channel list shows
// per channel.
const recentPreviewLimit = 3

// ChannelService provides channel CRUD, search, visits, and the per-user
// unread overview.
type ChannelService struct {
	channels domain.ChannelRepository
	messages domain.MessageRepository
	visits   domain.VisitRepository
}

func NewChannelService(
	channels domain.ChannelRepository,
	messages domain.MessageRepository,
	visits domain.VisitRepository,
) *ChannelService {
	return &ChannelService{
		channels: channels,
		messages: messages,
		visits:   visits,
	}
}

// Overview computes one ChannelOverview per channel for the given user,
// ordered by channel creation time. Per-channel unread counts and previews
// are computed concurrently; results are written into a position-indexed
// slice so the channel order survives out-of-order completion. A user who
// never visited a channel has every message counted as unread.
func (s *ChannelService) Overview(ctx context.Context, userID string) ([]domain.ChannelOverview, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren")
	}

	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	visits, err := s.visits.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	lastVisit := make(map[string]time.Time, len(visits))
	for _, v := range visits {
		lastVisit[v.ChannelID] = v.LastVisitedAt
	}

	views := make([]domain.ChannelOverview, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			since := lastVisit[ch.ID] // zero time when never visited
			count, err := s.messages.CountSince(gctx, ch.ID, since)
			if err != nil {
				return apperr.Upstream(err)
			}
			view := domain.ChannelOverview{
				Channel:        *ch,
				UnreadCount:    count,
				LastVisitedAt:  since,
				RecentMessages: []domain.MessagePreview{},
			}
			if count > 0 {
				recent, err := s.messages.ListSince(gctx, ch.ID, since, recentPreviewLimit)
				if err != nil {
					return apperr.Upstream(err)
				}
				view.RecentMessages = recent
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *ChannelService) Get(ctx context.Context, id string) (*domain.Channel, error) {
	ch, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if ch == nil {
		return nil, apperr.NotFound("Channel not found")
	}
	return ch, nil
}

func (s *ChannelService) Create(ctx context.Context, name string, description *string) (*domain.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidArg("Naam is verplicht")
	}

	ch := &domain.Channel{
		ID:          uuid.NewString(),
		Name:        name,
		Description: trimOptional(description),
	}
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, apperr.Upstream(err)
	}
	return ch, nil
}

func (s *ChannelService) Update(ctx context.Context, id, name string, description *string) (*domain.Channel, error) {
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, apperr.InvalidArg("Channel ID en naam zijn verplicht")
	}

	ch, err := s.channels.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if ch == nil {
		return nil, apperr.NotFound("Kanaal niet gevonden")
	}

	ch.Name = name
	ch.Description = trimOptional(description)
	updated, err := s.channels.Update(ctx, ch)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if !updated {
		return nil, apperr.NotFound("Kanaal niet gevonden")
	}
	return ch, nil
}

// Delete removes a channel. Deleting an id that no longer exists is a
// no-op, so repeated deletes succeed.
func (s *ChannelService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.InvalidArg("Channel ID is verplicht")
	}
	if err := s.channels.Delete(ctx, id); err != nil {
		return apperr.Upstream(err)
	}
	return nil
}

// Search returns channels whose name or description contains the term,
// case-insensitively. An empty term returns an empty list.
func (s *ChannelService) Search(ctx context.Context, term string) ([]*domain.Channel, error) {
	if term == "" {
		return []*domain.Channel{}, nil
	}
	channels, err := s.channels.Search(ctx, term)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return channels, nil
}

// RecordVisit upserts the user's last-visit marker for the channel to now.
func (s *ChannelService) RecordVisit(ctx context.Context, userID, channelID string) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return apperr.Upstream(err)
	}
	if ch == nil {
		return apperr.NotFound("Channel not found")
	}
	if err := s.visits.Upsert(ctx, userID, channelID, time.Now().UTC()); err != nil {
		return apperr.Upstream(err)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
