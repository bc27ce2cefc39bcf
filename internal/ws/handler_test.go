package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitychat/internal/domain"
	"communitychat/internal/security"
	"communitychat/internal/service"
	"communitychat/internal/ws"
)

const testOrigin = "http://example.com"

// In-memory repositories backing the ws handler under test. They surface a
// cancelled context as an error the way the SQL stores do.

type fakeUsers struct {
	user *domain.User
}

func (f *fakeUsers) Create(ctx context.Context, u *domain.User) error { return nil }

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}

func (f *fakeUsers) MergeMetadata(ctx context.Context, id string, patch map[string]any) (*domain.User, error) {
	return f.user, nil
}

func (f *fakeUsers) SetRole(ctx context.Context, id, role string) error { return nil }

func (f *fakeUsers) SetLastSignIn(ctx context.Context, id string, at time.Time) error { return nil }

type fakeProfiles struct{}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.Profile{ID: id, Name: "name-" + id}, nil
}

func (f *fakeProfiles) GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var res []*domain.Profile
	for _, id := range ids {
		res = append(res, &domain.Profile{ID: id, Name: "name-" + id})
	}
	return res, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, p *domain.Profile) error { return ctx.Err() }

func (f *fakeProfiles) ListWithAccounts(ctx context.Context) ([]*domain.ProfileWithAccount, error) {
	return nil, nil
}

type fakeChannels struct {
	channel *domain.Channel
}

func (f *fakeChannels) Create(ctx context.Context, c *domain.Channel) error { return nil }

func (f *fakeChannels) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.channel != nil && f.channel.ID == id {
		return f.channel, nil
	}
	return nil, nil
}

func (f *fakeChannels) List(ctx context.Context) ([]*domain.Channel, error) { return nil, nil }

func (f *fakeChannels) Update(ctx context.Context, c *domain.Channel) (bool, error) {
	return false, nil
}

func (f *fakeChannels) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeChannels) Search(ctx context.Context, term string) ([]*domain.Channel, error) {
	return nil, nil
}

type fakeMessages struct{}

func (f *fakeMessages) Create(ctx context.Context, m *domain.Message) error { return ctx.Err() }

func (f *fakeMessages) ListForChannel(ctx context.Context, channelID string, limit int) ([]*domain.MessageWithAuthor, error) {
	return nil, nil
}

func (f *fakeMessages) CountSince(ctx context.Context, channelID string, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeMessages) ListSince(ctx context.Context, channelID string, since time.Time, limit int) ([]domain.MessagePreview, error) {
	return nil, nil
}

type fakeVisits struct{}

func (f *fakeVisits) ListForUser(ctx context.Context, userID string) ([]*domain.ChannelVisit, error) {
	return nil, nil
}

func (f *fakeVisits) Upsert(ctx context.Context, userID, channelID string, at time.Time) error {
	return ctx.Err()
}

// dialWS starts a server with the ws handler behind the given router
// timeout and dials it as an authenticated client.
func dialWS(t *testing.T, timeout time.Duration) *websocket.Conn {
	t.Helper()

	users := &fakeUsers{user: &domain.User{ID: "u1", Email: "alice@example.com", Metadata: map[string]any{}}}
	profiles := &fakeProfiles{}
	channels := &fakeChannels{channel: &domain.Channel{ID: "ch1", Name: "general"}}

	chanSvc := service.NewChannelService(channels, &fakeMessages{}, &fakeVisits{})
	msgSvc := service.NewMessageService(channels, &fakeMessages{}, profiles, 50)
	tokens := security.NewTokenService("test-secret", time.Hour)

	hub := ws.NewHub(profiles)
	hub.Run()
	t.Cleanup(hub.Close)

	r := chi.NewRouter()
	r.Use(middleware.Timeout(timeout))
	r.Get("/ws", ws.MakeHandler(hub, tokens, users, profiles, chanSvc, msgSvc, []string{testOrigin}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	token, err := tokens.CreateForUser("u1")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Origin", testOrigin)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEventsOutliveRouterTimeout(t *testing.T) {
	conn := dialWS(t, 100*time.Millisecond)

	// Let the router's timeout cancel the request context while the
	// connection stays open.
	time.Sleep(300 * time.Millisecond)

	t.Run("Visit", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"type":       "visit",
			"channel_id": "ch1",
		}))

		event := readEvent(t, conn)
		assert.Equal(t, "channel_update", event["type"])
		assert.Equal(t, "channel_visits", event["table"])
		assert.Equal(t, "ch1", event["channel_id"])
	})

	t.Run("Message", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"type":       "message",
			"channel_id": "ch1",
			"content":    "still here",
		}))

		event := readEvent(t, conn)
		require.Equal(t, "message", event["type"])
		msg, ok := event["message"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "still here", msg["content"])

		event = readEvent(t, conn)
		assert.Equal(t, "channel_update", event["type"])
		assert.Equal(t, "messages", event["table"])
	})

	t.Run("Track", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "track"}))

		event := readEvent(t, conn)
		require.Equal(t, "presence_state", event["type"])
		users, ok := event["users"].([]any)
		require.True(t, ok)
		require.Len(t, users, 1)
	})
}
