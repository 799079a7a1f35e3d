package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Booking    BookingConfig    `yaml:"booking"`
	Referral   ReferralConfig   `yaml:"referral"`
	Reminder   ReminderConfig   `yaml:"reminder"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"VAPID_SUBJECT"`
	TTL        int    `yaml:"ttl"`
	// Store selects where subscriptions live: "sql" (default) or "mongo".
	Store    string `yaml:"store"`
	MongoURI string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDB  string `yaml:"mongo_db"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	Mode            string  `yaml:"mode" env:"GIN_MODE"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// CacheConfig selects and tunes the keyed cache backend.
type CacheConfig struct {
	Backend                string        `yaml:"backend"`
	RedisAddr              string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword          string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB                int           `yaml:"redis_db" env:"REDIS_DB"`
	AvailabilityTTLSeconds int           `yaml:"availability_ttl_seconds"`
	AvailabilityTTL        time.Duration `yaml:"-"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer        string        `yaml:"issuer"`
	TokenTTLHours int           `yaml:"token_ttl_hours"`
	TokenTTL      time.Duration `yaml:"-"`
}

// BookingConfig holds slot generation settings.
type BookingConfig struct {
	SlotStepMinutes int `yaml:"slot_step_minutes"`
}

// ReferralConfig holds the points granted on a successful referral.
type ReferralConfig struct {
	ReferrerPoints   int `yaml:"referrer_points"`
	RefereePoints    int `yaml:"referee_points"`
	LeaderboardLimit int `yaml:"leaderboard_limit"`
}

// ReminderConfig holds the booking reminder loop configuration.
type ReminderConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	LeadMinutes     int           `yaml:"lead_minutes"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	Level       string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads the configuration from the given path, overlays environment
// variables (including a local .env file when present) and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Push.Store == "" {
		cfg.Push.Store = "sql"
	}
	if cfg.Push.MongoDB == "" {
		cfg.Push.MongoDB = "spa"
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = cfg.WorkerPool.Size * 16
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.AvailabilityTTLSeconds <= 0 {
		cfg.Cache.AvailabilityTTLSeconds = 300
	}
	cfg.Cache.AvailabilityTTL = time.Duration(cfg.Cache.AvailabilityTTLSeconds) * time.Second

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "spa-booking-backend"
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	if cfg.Booking.SlotStepMinutes <= 0 {
		cfg.Booking.SlotStepMinutes = 15
	}

	if cfg.Referral.LeaderboardLimit <= 0 {
		cfg.Referral.LeaderboardLimit = 10
	}

	if cfg.Reminder.IntervalSeconds <= 0 {
		cfg.Reminder.IntervalSeconds = 60
	}
	cfg.Reminder.Interval = time.Duration(cfg.Reminder.IntervalSeconds) * time.Second
	if cfg.Reminder.LeadMinutes <= 0 {
		cfg.Reminder.LeadMinutes = 60
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
