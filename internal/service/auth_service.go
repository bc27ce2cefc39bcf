package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
	"communitychat/internal/security"
)

// AuthService handles registration and login.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, apperr.InvalidArg("email and password are required")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if existing != nil {
		return nil, apperr.InvalidArg("email already registered")
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashed,
		Role:           domain.RoleUser,
		Metadata:       map[string]any{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Upstream(err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("incorrect email or password")
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, apperr.Unauthenticated("incorrect email or password")
	}

	now := time.Now().UTC()
	if err := s.users.SetLastSignIn(ctx, user.ID, now); err != nil {
		return nil, apperr.Upstream(err)
	}
	user.LastSignInAt = now

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}
