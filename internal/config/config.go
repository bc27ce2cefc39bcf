package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// DBDriver selects the store: "postgres" or "sqlite".
	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	JWTSecret          string
	AccessTokenMinutes int

	CORSOrigins []string
	Debug       bool

	// RedisAddr enables the message-post rate limiter when set.
	RedisAddr       string
	PostRateLimit   int
	PostRateWindow  time.Duration
	MessagePageSize int
}

func Load() (*Config, error) {
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbUser := getEnv("POSTGRES_USER", "postgres")
	dbPass := getEnv("POSTGRES_PASSWORD", "postgres")
	dbName := getEnv("POSTGRES_DB", "communitychat")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPass),
		Host:     fmt.Sprintf("%s:%s", dbHost, dbPort),
		Path:     dbName,
		RawQuery: "sslmode=disable",
	}

	cfg := &Config{
		AppName: getEnv("APP_NAME", "Community Chat API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: u.String(),
		SQLitePath:  getEnv("SQLITE_PATH", "communitychat.db"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),

		Debug: getEnvAsBool("DEBUG", true),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		PostRateLimit:   getEnvAsInt("POST_RATE_LIMIT", 30),
		PostRateWindow:  time.Duration(getEnvAsInt("POST_RATE_WINDOW_SECONDS", 60)) * time.Second,
		MessagePageSize: getEnvAsInt("MESSAGE_PAGE_SIZE", 50),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
