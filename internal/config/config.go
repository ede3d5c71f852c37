package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ドキュメントストアのバックエンド
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// 画像ホスティングのバックエンド
const (
	ImageCloudinary = "cloudinary"
	ImageGCS        = "gcs"
	ImageNone       = "none"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Document store
	DocstoreBackend  string
	DatabaseURL      string
	FirestoreProject string

	// Image hosting
	ImageBackend           string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	GCSBucket              string
	UploadMaxSize          int64

	// OAuth（未設定の場合はGoogleサインインを無効化）
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// GitHub
	GitHubToken       string
	GitHubFeedTimeout time.Duration

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	MinPasswordLength      int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitWrite   int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// GoogleEnabled はGoogleサインインが設定されているかを返す。
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	// バックエンドごとの必須項目
	cfg.DocstoreBackend = strings.ToLower(getEnvString("DOCSTORE_BACKEND", BackendPostgres))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.FirestoreProject = os.Getenv("FIRESTORE_PROJECT")
	switch cfg.DocstoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendFirestore:
		if cfg.FirestoreProject == "" {
			missing = append(missing, "FIRESTORE_PROJECT")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unsupported DOCSTORE_BACKEND: %q", cfg.DocstoreBackend)
	}

	cfg.ImageBackend = strings.ToLower(getEnvString("IMAGE_BACKEND", ImageNone))
	cfg.CloudinaryCloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	cfg.CloudinaryUploadPreset = os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	cfg.GCSBucket = os.Getenv("GCS_BUCKET")
	switch cfg.ImageBackend {
	case ImageCloudinary:
		if cfg.CloudinaryCloudName == "" {
			missing = append(missing, "CLOUDINARY_CLOUD_NAME")
		}
		if cfg.CloudinaryUploadPreset == "" {
			missing = append(missing, "CLOUDINARY_UPLOAD_PRESET")
		}
	case ImageGCS:
		if cfg.GCSBucket == "" {
			missing = append(missing, "GCS_BUCKET")
		}
	case ImageNone:
	default:
		return nil, fmt.Errorf("unsupported IMAGE_BACKEND: %q", cfg.ImageBackend)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubFeedTimeout = getEnvDuration("GITHUB_FEED_TIMEOUT", 10*time.Second)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 5242880)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.MinPasswordLength = getEnvInt("MIN_PASSWORD_LENGTH", 6)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.LogLevel = getEnvLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvLevel はdebug, info, warn, errorのいずれかを解釈する。
func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
