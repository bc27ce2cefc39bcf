package service

import (
	"context"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
)

// UserService provides account-level operations.
type UserService struct {
	users    domain.UserRepository
	profiles domain.ProfileRepository
}

func NewUserService(users domain.UserRepository, profiles domain.ProfileRepository) *UserService {
	return &UserService{users: users, profiles: profiles}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

// UpdateMetadata merges the patch into the user's metadata object. Keys not
// present in the patch are kept.
func (s *UserService) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*domain.User, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if existing == nil {
		return nil, apperr.NotFound("User not found")
	}

	user, err := s.users.MergeMetadata(ctx, id, patch)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return user, nil
}

// SetRole changes a user's persisted role.
func (s *UserService) SetRole(ctx context.Context, id, role string) error {
	if id == "" || role == "" {
		return apperr.InvalidArg("Gebruikers-ID en rol zijn verplicht")
	}
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return apperr.InvalidArg("rol moet 'admin' of 'user' zijn")
	}

	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return apperr.Upstream(err)
	}
	if existing == nil {
		return apperr.NotFound("User not found")
	}

	if err := s.users.SetRole(ctx, id, role); err != nil {
		return apperr.Upstream(err)
	}
	return nil
}

// ListWithAccounts returns all profiles joined with their account fields.
func (s *UserService) ListWithAccounts(ctx context.Context) ([]*domain.ProfileWithAccount, error) {
	list, err := s.profiles.ListWithAccounts(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	return list, nil
}
