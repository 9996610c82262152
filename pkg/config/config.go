package config

import (
	"errors"
	"io/fs"
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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Dashboard     DashboardConfig
	Notifications NotificationsConfig
	Email         EmailConfig
	RateLimit     RateLimitConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NotificationsConfig drives the per-user notification scheduler.
type NotificationsConfig struct {
	Enabled          bool
	TickInterval     time.Duration
	MorningReminder  string
	EveningReminder  string
	MotivationStart  string
	MotivationEnd    string
	Seed             string
	DefaultTimezone  string
	RetryFailed      bool
	Workers          int
	QueueBuffer      int
	DeliveryTimeout  time.Duration
	Channels         []string
	DefaultTarget    int
	ImmediateOnStart bool
}

// EmailConfig configures the SendGrid delivery channel.
type EmailConfig struct {
	SendGridAPIKey string
	SendGridHost   string
	FromName       string
	FromEmail      string
}

// RateLimitConfig bounds attendance mutations per client IP.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("DASHBOARD_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:          v.GetBool("NOTIFY_ENABLED"),
		TickInterval:     parseDuration(v.GetString("NOTIFY_TICK_INTERVAL"), time.Minute),
		MorningReminder:  v.GetString("NOTIFY_MORNING_REMINDER"),
		EveningReminder:  v.GetString("NOTIFY_EVENING_REMINDER"),
		MotivationStart:  v.GetString("NOTIFY_MOTIVATION_START"),
		MotivationEnd:    v.GetString("NOTIFY_MOTIVATION_END"),
		Seed:             v.GetString("NOTIFY_SEED"),
		DefaultTimezone:  v.GetString("NOTIFY_DEFAULT_TIMEZONE"),
		RetryFailed:      v.GetBool("NOTIFY_RETRY_FAILED"),
		Workers:          v.GetInt("NOTIFY_WORKERS"),
		QueueBuffer:      v.GetInt("NOTIFY_QUEUE_BUFFER"),
		DeliveryTimeout:  parseDuration(v.GetString("NOTIFY_DELIVERY_TIMEOUT"), 10*time.Second),
		Channels:         splitAndTrim(v.GetString("NOTIFY_CHANNELS")),
		DefaultTarget:    v.GetInt("NOTIFY_DEFAULT_TARGET"),
		ImmediateOnStart: v.GetBool("NOTIFY_IMMEDIATE_ON_START"),
	}

	cfg.Email = EmailConfig{
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		SendGridHost:   v.GetString("SENDGRID_HOST"),
		FromName:       v.GetString("EMAIL_FROM_NAME"),
		FromEmail:      v.GetString("EMAIL_FROM_ADDRESS"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:   parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
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
	v.SetDefault("DB_NAME", "attendly")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "attendly")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_ENABLED", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_TICK_INTERVAL", "60s")
	v.SetDefault("NOTIFY_MORNING_REMINDER", "10:00")
	v.SetDefault("NOTIFY_EVENING_REMINDER", "17:00")
	v.SetDefault("NOTIFY_MOTIVATION_START", "08:00")
	v.SetDefault("NOTIFY_MOTIVATION_END", "20:00")
	v.SetDefault("NOTIFY_SEED", "attendly")
	v.SetDefault("NOTIFY_DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("NOTIFY_RETRY_FAILED", true)
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_BUFFER", 64)
	v.SetDefault("NOTIFY_DELIVERY_TIMEOUT", "10s")
	v.SetDefault("NOTIFY_CHANNELS", "log,inbox")
	v.SetDefault("NOTIFY_DEFAULT_TARGET", 75)
	v.SetDefault("NOTIFY_IMMEDIATE_ON_START", true)

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SENDGRID_HOST", "https://api.sendgrid.com")
	v.SetDefault("EMAIL_FROM_NAME", "Attendly")
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@attendly.app")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
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
