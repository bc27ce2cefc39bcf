package store

import (
	"database/sql"
	"fmt"

	"communitychat/internal/config"
	"communitychat/internal/domain"
	"communitychat/internal/store/postgres"
	"communitychat/internal/store/sqlite"
)

// Repos bundles the repository set of whichever driver is configured.
type Repos struct {
	Users    domain.UserRepository
	Channels domain.ChannelRepository
	Messages domain.MessageRepository
	Profiles domain.ProfileRepository
	Visits   domain.VisitRepository
}

// Open opens the configured store, runs its migrations, and returns the
// repository set backed by it.
func Open(cfg *config.Config) (*sql.DB, *Repos, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, &Repos{
			Users:    postgres.NewUserRepo(db),
			Channels: postgres.NewChannelRepo(db),
			Messages: postgres.NewMessageRepo(db),
			Profiles: postgres.NewProfileRepo(db),
			Visits:   postgres.NewVisitRepo(db),
		}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, &Repos{
			Users:    sqlite.NewUserRepo(db),
			Channels: sqlite.NewChannelRepo(db),
			Messages: sqlite.NewMessageRepo(db),
			Profiles: sqlite.NewProfileRepo(db),
			Visits:   sqlite.NewVisitRepo(db),
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB driver %q", cfg.DBDriver)
	}
}
