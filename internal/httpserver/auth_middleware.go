package httpserver

import (
	"context"
	"log"
	"net/http"
	"strings"

	"communitychat/internal/apperr"
	"communitychat/internal/domain"
	"communitychat/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the user to the
// context. The user record is loaded fresh from the store on every request,
// so role changes take effect without reissuing tokens.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeError(w, apperr.Unauthenticated("missing or invalid Authorization header"))
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				writeError(w, apperr.Unauthenticated("invalid token"))
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeError(w, apperr.Unauthenticated("invalid token subject"))
				return
			}

			user, err := users.GetByID(r.Context(), sub)
			if err != nil {
				log.Printf("AuthMiddleware: GetByID error for sub '%s': %v", sub, err)
				writeError(w, apperr.Unauthenticated("user not found"))
				return
			}
			if user == nil {
				log.Printf("AuthMiddleware: user nil for sub '%s'", sub)
				writeError(w, apperr.Unauthenticated("user not found"))
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards admin-only routes. The role comes from the user record
// AuthMiddleware just loaded, never from the token.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeError(w, apperr.Unauthenticated("Je moet ingelogd zijn om deze actie uit te voeren"))
			return
		}
		if !user.IsAdmin() {
			writeError(w, apperr.Forbidden("Je hebt geen toegang tot deze functie"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
