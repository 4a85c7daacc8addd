package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Review   ReviewConfig
	Effects  EffectsConfig
	Mail     MailConfig
	Assets   AssetsConfig
	Cache    CacheConfig
	Mirror   MirrorConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReviewConfig tunes the moderation pipeline and its sweeps.
type ReviewConfig struct {
	SweepInterval        time.Duration
	StaleAssignedAfter   time.Duration
	StaleUnclaimedAfter  time.Duration
	SweepBatchSize       int
	EditRequestOpenLimit int
}

// EffectsConfig sizes the side-effect worker queue.
type EffectsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// MailConfig configures the transactional mailer.
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AssetsConfig controls the local asset store backing uploaded objects.
type AssetsConfig struct {
	StorageDir string
}

// CacheConfig tunes the list-response cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// MirrorConfig points at the external CMS mirror whose records are
// removed alongside a discard.
type MirrorConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Review = ReviewConfig{
		SweepInterval:        parseDuration(v.GetString("REVIEW_SWEEP_INTERVAL"), 24*time.Hour),
		StaleAssignedAfter:   parseDuration(v.GetString("REVIEW_STALE_ASSIGNED_AFTER"), 30*24*time.Hour),
		StaleUnclaimedAfter:  parseDuration(v.GetString("REVIEW_STALE_UNCLAIMED_AFTER"), 60*24*time.Hour),
		SweepBatchSize:       v.GetInt("REVIEW_SWEEP_BATCH_SIZE"),
		EditRequestOpenLimit: v.GetInt("REVIEW_EDIT_REQUEST_OPEN_LIMIT"),
	}

	cfg.Effects = EffectsConfig{
		Workers:    v.GetInt("EFFECTS_WORKERS"),
		BufferSize: v.GetInt("EFFECTS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("EFFECTS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("EFFECTS_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Mail = MailConfig{
		Enabled:  v.GetBool("MAIL_ENABLED"),
		Host:     v.GetString("MAIL_HOST"),
		Port:     v.GetInt("MAIL_PORT"),
		Username: v.GetString("MAIL_USERNAME"),
		Password: v.GetString("MAIL_PASSWORD"),
		From:     v.GetString("MAIL_FROM"),
	}

	cfg.Assets = AssetsConfig{
		StorageDir: v.GetString("ASSETS_STORAGE_DIR"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_LIST_CACHE"),
		TTL:     parseDuration(v.GetString("LIST_CACHE_TTL"), time.Minute),
	}

	cfg.Mirror = MirrorConfig{
		Enabled: v.GetBool("MIRROR_ENABLED"),
		BaseURL: v.GetString("MIRROR_BASE_URL"),
		Timeout: parseDuration(v.GetString("MIRROR_TIMEOUT"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "moderation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REVIEW_SWEEP_INTERVAL", "24h")
	v.SetDefault("REVIEW_STALE_ASSIGNED_AFTER", "720h")
	v.SetDefault("REVIEW_STALE_UNCLAIMED_AFTER", "1440h")
	v.SetDefault("REVIEW_SWEEP_BATCH_SIZE", 100)
	v.SetDefault("REVIEW_EDIT_REQUEST_OPEN_LIMIT", 2)

	v.SetDefault("EFFECTS_WORKERS", 4)
	v.SetDefault("EFFECTS_BUFFER_SIZE", 64)
	v.SetDefault("EFFECTS_MAX_RETRIES", 3)
	v.SetDefault("EFFECTS_RETRY_DELAY", "2s")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_HOST", "localhost")
	v.SetDefault("MAIL_PORT", 25)
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "noreply@quillhub.dev")

	v.SetDefault("ASSETS_STORAGE_DIR", "./assets")

	v.SetDefault("ENABLE_LIST_CACHE", false)
	v.SetDefault("LIST_CACHE_TTL", "1m")

	v.SetDefault("MIRROR_ENABLED", false)
	v.SetDefault("MIRROR_BASE_URL", "http://localhost:9000")
	v.SetDefault("MIRROR_TIMEOUT", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
