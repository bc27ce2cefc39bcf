package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
	"communitychat/internal/service"
)

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileRepo) ListWithAccounts(ctx context.Context) ([]*domain.ProfileWithAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ProfileWithAccount), args.Error(1)
}

func newMessageService() (*service.MessageService, *MockChannelRepo, *MockMessageRepo, *MockProfileRepo) {
	chRepo := new(MockChannelRepo)
	msgRepo := new(MockMessageRepo)
	profRepo := new(MockProfileRepo)
	return service.NewMessageService(chRepo, msgRepo, profRepo, 50), chRepo, msgRepo, profRepo
}

func TestListMessagesChronological(t *testing.T) {
	svc, chRepo, msgRepo, _ := newMessageService()

	chRepo.On("GetByID", mock.Anything, "ch1").Return(&domain.Channel{ID: "ch1"}, nil)
	// Repo returns newest first
	msgRepo.On("ListForChannel", mock.Anything, "ch1", 50).Return([]*domain.MessageWithAuthor{
		{Message: domain.Message{ID: "m3"}},
		{Message: domain.Message{ID: "m2"}},
		{Message: domain.Message{ID: "m1"}},
	}, nil)

	msgs, err := svc.ListForChannel(context.Background(), "ch1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestListMessagesChannelNotFound(t *testing.T) {
	svc, chRepo, _, _ := newMessageService()
	chRepo.On("GetByID", mock.Anything, "missing").Return(nil, nil)

	_, err := svc.ListForChannel(context.Background(), "missing")
	require.Error(t, err)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeNotFound, ae.Code)
	assert.Equal(t, "Channel not found", ae.Message)
}

func TestPostMessage(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "alice@example.com", Metadata: map[string]any{}}

	t.Run("Success", func(t *testing.T) {
		svc, chRepo, msgRepo, profRepo := newMessageService()

		chRepo.On("GetByID", mock.Anything, "ch1").Return(&domain.Channel{ID: "ch1"}, nil)
		profRepo.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1", Name: "Alice"}, nil)
		msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ChannelID == "ch1" && m.UserID == "u1" && m.Content == "hello" && m.ID != ""
		})).Return(nil)

		msg, err := svc.Post(context.Background(), "ch1", "  hello  ", user)
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Content)
		require.NotNil(t, msg.User)
		assert.Equal(t, "Alice", msg.User.Name)
	})

	t.Run("LazyProfileCreation", func(t *testing.T) {
		svc, chRepo, msgRepo, profRepo := newMessageService()

		chRepo.On("GetByID", mock.Anything, "ch1").Return(&domain.Channel{ID: "ch1"}, nil)
		profRepo.On("GetByID", mock.Anything, "u1").Return(nil, nil)
		profRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
			return p.ID == "u1" && p.Name == "alice" && p.AvatarURL != ""
		})).Return(nil)
		msgRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.Post(context.Background(), "ch1", "first post", user)
		require.NoError(t, err)
		require.NotNil(t, msg.User)
		assert.Equal(t, "alice", msg.User.Name)
		profRepo.AssertExpectations(t)
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		svc, _, _, _ := newMessageService()

		_, err := svc.Post(context.Background(), "ch1", "   \n\t  ", user)
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.CodeInvalidArgument, ae.Code)
	})

	t.Run("ChannelMustExist", func(t *testing.T) {
		svc, chRepo, _, _ := newMessageService()
		chRepo.On("GetByID", mock.Anything, "missing").Return(nil, nil)

		_, err := svc.Post(context.Background(), "missing", "hello", user)
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.CodeNotFound, ae.Code)
	})

	t.Run("RequiresUser", func(t *testing.T) {
		svc, _, _, _ := newMessageService()

		_, err := svc.Post(context.Background(), "ch1", "hello", nil)
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.CodeUnauthenticated, ae.Code)
	})
}

func TestPostMessageCreatedAtUTC(t *testing.T) {
	svc, chRepo, msgRepo, profRepo := newMessageService()

	chRepo.On("GetByID", mock.Anything, "ch1").Return(&domain.Channel{ID: "ch1"}, nil)
	profRepo.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1", Name: "Alice"}, nil)

	var created *domain.Message
	msgRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Message)
	}).Return(nil)

	_, err := svc.Post(context.Background(), "ch1", "hi", &domain.User{ID: "u1", Email: "a@b.com"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, time.UTC, created.CreatedAt.Location())
}
