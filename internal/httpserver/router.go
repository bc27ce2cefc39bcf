package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"communitychat/internal/config"
	"communitychat/internal/security"
	"communitychat/internal/service"
	"communitychat/internal/store"
	"communitychat/internal/ws"

	_ "communitychat/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	repos *store.Repos,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	redisClient *redis.Client,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(repos.Users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(repos.Users, repos.Profiles)
	chanSvc := service.NewChannelService(repos.Channels, repos.Messages, repos.Visits)
	msgSvc := service.NewMessageService(repos.Channels, repos.Messages, repos.Profiles, cfg.MessagePageSize)

	// Message posting is rate limited only when Redis is configured.
	var limiter *Limiter
	if redisClient != nil {
		limiter = NewLimiter(redisClient, "ratelimit:messages")
	}
	postLimit := RateLimit(limiter, cfg.PostRateLimit, cfg.PostRateWindow)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Community Chat API","version":"1.0.0","docs":"/docs"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Users))

			r.Post("/auth/logout", handleLogout())
			r.Get("/auth/me", handleMe())

			// Channels; /search must register before the {channelID} routes
			r.Route("/channels", func(r chi.Router) {
				r.Get("/", handleListChannels(chanSvc))
				r.Get("/search", handleSearchChannels(chanSvc))
				r.Get("/{channelID}", handleGetChannel(chanSvc))
				r.Post("/{channelID}/visit", handleRecordVisit(chanSvc, hub))
				r.Get("/{channelID}/messages", handleListMessages(msgSvc))
				r.With(postLimit).Post("/{channelID}/messages", handleCreateMessage(msgSvc, hub))

				// Channel management is admin only
				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Post("/", handleCreateChannel(chanSvc))
					r.Put("/{channelID}", handleUpdateChannel(chanSvc))
					r.Delete("/{channelID}", handleDeleteChannel(chanSvc))
				})
			})

			// Users
			r.Route("/users", func(r chi.Router) {
				r.With(RequireAdmin).Get("/", handleListUsers(userSvc))
				r.Put("/{userID}", handleUpdateUser(userSvc))
			})

			// Admin
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/set-role", handleSetRole(userSvc))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, repos.Users, repos.Profiles, chanSvc, msgSvc, cfg.CORSOrigins))

	return r
}
