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
	"communitychat/internal/security"
	"communitychat/internal/service"
)

// newTestHasher uses the minimum bcrypt cost to keep tests fast.
func newTestHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(4)
}

func TestLogin(t *testing.T) {
	hasher := newTestHasher()
	tokenSvc := security.NewTokenService("test-secret", time.Hour)

	hashed, err := hasher.Hash("Password1!")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := service.NewAuthService(userRepo, tokenSvc, hasher)

		stored := &domain.User{ID: "u1", Email: "alice@example.com", HashedPassword: hashed}
		userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
		userRepo.On("SetLastSignIn", mock.Anything, "u1", mock.Anything).Return(nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "Alice@Example.com",
			Password: "Password1!",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "u1", resp.User.ID)
		assert.False(t, resp.User.LastSignInAt.IsZero())

		// The token carries only the subject
		claims, err := tokenSvc.Parse(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims["sub"])
		assert.NotContains(t, claims, "role")
	})

	t.Run("WrongPassword", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := service.NewAuthService(userRepo, tokenSvc, hasher)

		stored := &domain.User{ID: "u1", Email: "alice@example.com", HashedPassword: hashed}
		userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "alice@example.com",
			Password: "wrong",
		})
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.CodeUnauthenticated, ae.Code)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := service.NewAuthService(userRepo, tokenSvc, hasher)
		userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "nobody@example.com",
			Password: "Password1!",
		})
		require.Error(t, err)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.CodeUnauthenticated, ae.Code)
		// Same message for unknown email and wrong password
		assert.Equal(t, "incorrect email or password", ae.Message)
	})
}
