// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing secret. Production refuses to keep it silently.
const DefaultJWTSecret = "diaspora_handbook_secret_key_2025"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	// DatabaseURL selects the networked postgres backend when set; otherwise
	// the embedded sqlite file at DBPath is used.
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	DBPath                   string `mapstructure:"DB_PATH"`
	DBAutoSchema             bool   `mapstructure:"DB_AUTO_SCHEMA"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	UploadDir           string `mapstructure:"UPLOAD_DIR"`
	AvatarMaxUploadMB   int    `mapstructure:"AVATAR_MAX_UPLOAD_MB"`
	StorageURL          string `mapstructure:"STORAGE_URL"`
	StorageKey          string `mapstructure:"STORAGE_KEY"`
	StorageBucket       string `mapstructure:"STORAGE_BUCKET"`
	RateLimitPerMinute  int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	WSMaxConnections    int    `mapstructure:"WS_MAX_CONNECTIONS"`
	FeatureFlags        string `mapstructure:"FEATURE_FLAGS"`
	SeedOnStart         bool   `mapstructure:"SEED_ON_START"`
	TracingEnabled      bool   `mapstructure:"TRACING_ENABLED"`
	TracingOTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_PATH", "data/diaspora_handbook.db")
	viper.SetDefault("DB_AUTO_SCHEMA", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("JWT_SECRET", DefaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("AVATAR_MAX_UPLOAD_MB", 5)
	viper.SetDefault("STORAGE_URL", "")
	viper.SetDefault("STORAGE_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "avatars")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("WS_MAX_CONNECTIONS", 10000)
	viper.SetDefault("FEATURE_FLAGS", "transactional_writes=on,strict_channel_leave=off")
	viper.SetDefault("SEED_ON_START", false)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Env = strings.ToLower(strings.TrimSpace(config.Env))
	if config.RateLimitPerMinute <= 0 {
		if config.IsProduction() {
			config.RateLimitPerMinute = 300
		} else {
			config.RateLimitPerMinute = 1000
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the process runs with production semantics.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// UsesPostgres reports whether the networked backend is configured.
func (c *Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// Origins returns the CORS allow-list. Outside production an empty list means any origin.
func (c *Config) Origins() string {
	raw := strings.TrimSpace(c.AllowedOrigins)
	if raw == "" {
		if c.IsProduction() {
			return ""
		}
		return "*"
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !c.UsesPostgres() && strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH is required when DATABASE_URL is not set")
	}
	if c.AvatarMaxUploadMB <= 0 {
		return errors.New("AVATAR_MAX_UPLOAD_MB must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == DefaultJWTSecret {
			log.Println("WARNING: JWT_SECRET is using default value. This is insecure for production!")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if !c.UsesPostgres() {
			log.Println("WARNING: running production on the embedded sqlite database.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
