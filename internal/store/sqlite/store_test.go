package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitychat/internal/domain"
	"communitychat/internal/store/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// In-memory DBs exist per connection
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id, email string) {
	t.Helper()
	repo := sqlite.NewUserRepo(db)
	require.NoError(t, repo.Create(context.Background(), &domain.User{
		ID:             id,
		Email:          email,
		HashedPassword: "x",
		Role:           domain.RoleUser,
		Metadata:       map[string]any{},
	}))
}

func seedChannel(t *testing.T, db *sql.DB, id, name string, at time.Time) {
	t.Helper()
	repo := sqlite.NewChannelRepo(db)
	require.NoError(t, repo.Create(context.Background(), &domain.Channel{
		ID:        id,
		Name:      name,
		CreatedAt: at,
	}))
}

func TestMessageCountAndListSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "u1", "alice@example.com")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedChannel(t, db, "ch1", "general", base)

	msgRepo := sqlite.NewMessageRepo(db)
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		require.NoError(t, msgRepo.Create(ctx, &domain.Message{
			ID:        id,
			ChannelID: "ch1",
			UserID:    "u1",
			Content:   "msg " + id,
			CreatedAt: base.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	t.Run("CountStrictlyAfter", func(t *testing.T) {
		// Visit exactly at m2's timestamp: m2 itself is already read
		count, err := msgRepo.CountSince(ctx, "ch1", base.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("EpochCountsEverything", func(t *testing.T) {
		count, err := msgRepo.CountSince(ctx, "ch1", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("ListSinceNewestFirstLimited", func(t *testing.T) {
		previews, err := msgRepo.ListSince(ctx, "ch1", time.Time{}, 3)
		require.NoError(t, err)
		require.Len(t, previews, 3)
		assert.Equal(t, "m5", previews[0].ID)
		assert.Equal(t, "m4", previews[1].ID)
		assert.Equal(t, "m3", previews[2].ID)
	})

	t.Run("AuthorFallsBackToEmail", func(t *testing.T) {
		// No profile row exists for u1
		previews, err := msgRepo.ListSince(ctx, "ch1", base.Add(4*time.Minute), 3)
		require.NoError(t, err)
		require.Len(t, previews, 1)
		assert.Equal(t, "alice@example.com", previews[0].Author)
	})

	t.Run("AuthorPrefersProfileName", func(t *testing.T) {
		profRepo := sqlite.NewProfileRepo(db)
		require.NoError(t, profRepo.Upsert(ctx, &domain.Profile{ID: "u1", Name: "Alice"}))

		previews, err := msgRepo.ListSince(ctx, "ch1", base.Add(4*time.Minute), 3)
		require.NoError(t, err)
		require.Len(t, previews, 1)
		assert.Equal(t, "Alice", previews[0].Author)
	})
}

func TestVisitUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "u1", "alice@example.com")
	seedChannel(t, db, "ch1", "general", time.Now().UTC())

	visitRepo := sqlite.NewVisitRepo(db)
	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, visitRepo.Upsert(ctx, "u1", "ch1", first))
	require.NoError(t, visitRepo.Upsert(ctx, "u1", "ch1", second))

	visits, err := visitRepo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.True(t, visits[0].LastVisitedAt.Equal(second))
}

func TestChannelListOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	seedChannel(t, db, "ch2", "second", base.Add(time.Hour))
	seedChannel(t, db, "ch1", "first", base)
	seedChannel(t, db, "ch3", "third", base.Add(2*time.Hour))

	channels, err := sqlite.NewChannelRepo(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 3)
	assert.Equal(t, "first", channels[0].Name)
	assert.Equal(t, "second", channels[1].Name)
	assert.Equal(t, "third", channels[2].Name)
}

func TestChannelSearchCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	desc := "Announcements for Everyone"
	repo := sqlite.NewChannelRepo(db)
	require.NoError(t, repo.Create(ctx, &domain.Channel{ID: "ch1", Name: "General"}))
	require.NoError(t, repo.Create(ctx, &domain.Channel{ID: "ch2", Name: "random", Description: &desc}))

	t.Run("MatchesName", func(t *testing.T) {
		res, err := repo.Search(ctx, "gEnErAl")
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "ch1", res[0].ID)
	})

	t.Run("MatchesDescription", func(t *testing.T) {
		res, err := repo.Search(ctx, "announce")
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "ch2", res[0].ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		res, err := repo.Search(ctx, "zzz")
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestChannelDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "u1", "alice@example.com")
	seedChannel(t, db, "ch1", "doomed", time.Now().UTC())

	msgRepo := sqlite.NewMessageRepo(db)
	require.NoError(t, msgRepo.Create(ctx, &domain.Message{
		ID: "m1", ChannelID: "ch1", UserID: "u1", Content: "bye",
	}))
	visitRepo := sqlite.NewVisitRepo(db)
	require.NoError(t, visitRepo.Upsert(ctx, "u1", "ch1", time.Now().UTC()))

	chRepo := sqlite.NewChannelRepo(db)
	require.NoError(t, chRepo.Delete(ctx, "ch1"))

	ch, err := chRepo.GetByID(ctx, "ch1")
	require.NoError(t, err)
	assert.Nil(t, ch)

	count, err := msgRepo.CountSince(ctx, "ch1", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)

	visits, err := visitRepo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, visits)

	// Deleting again is a no-op
	require.NoError(t, chRepo.Delete(ctx, "ch1"))
}

func TestUserMetadataMerge(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userRepo := sqlite.NewUserRepo(db)
	require.NoError(t, userRepo.Create(ctx, &domain.User{
		ID:             "u1",
		Email:          "alice@example.com",
		HashedPassword: "x",
		Role:           domain.RoleUser,
		Metadata:       map[string]any{"full_name": "Alice", "color": "red"},
	}))

	merged, err := userRepo.MergeMetadata(ctx, "u1", map[string]any{"color": "blue", "tz": "UTC"})
	require.NoError(t, err)
	require.NotNil(t, merged)

	// Patched keys win, untouched keys survive
	assert.Equal(t, "Alice", merged.Metadata["full_name"])
	assert.Equal(t, "blue", merged.Metadata["color"])
	assert.Equal(t, "UTC", merged.Metadata["tz"])

	reloaded, err := userRepo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "blue", reloaded.Metadata["color"])
}

func TestUserSetRole(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "u1", "alice@example.com")
	userRepo := sqlite.NewUserRepo(db)

	require.NoError(t, userRepo.SetRole(ctx, "u1", domain.RoleAdmin))

	user, err := userRepo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestProfileListWithAccounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "u1", "alice@example.com")
	seedUser(t, db, "u2", "bob@example.com")

	profRepo := sqlite.NewProfileRepo(db)
	older := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, profRepo.Upsert(ctx, &domain.Profile{ID: "u1", Name: "Alice", UpdatedAt: older}))
	require.NoError(t, profRepo.Upsert(ctx, &domain.Profile{ID: "u2", Name: "Bob", UpdatedAt: older.Add(time.Hour)}))

	list, err := profRepo.ListWithAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Most recently updated first
	assert.Equal(t, "Bob", list[0].Name)
	assert.Equal(t, "bob@example.com", list[0].Email)
	assert.Equal(t, "Alice", list[1].Name)
}
