package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	LogLevel            string   `mapstructure:"LOG_LEVEL"`
	LogFile             string   `mapstructure:"LOG_FILE"`
	StorageBackend      string   `mapstructure:"STORAGE_BACKEND"`
	StorageNamespace    string   `mapstructure:"STORAGE_NAMESPACE"`
	DataDir             string   `mapstructure:"DATA_DIR"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	MongoURI            string   `mapstructure:"MONGO_URI"`
	MongoDatabase       string   `mapstructure:"MONGO_DATABASE"`
	EncryptionKey       string   `mapstructure:"ENCRYPTION_KEY"`
	SessionSigningKey   string   `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL          string   `mapstructure:"SESSION_TTL"`
	AdminUsername       string   `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash   string   `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminDisplayName    string   `mapstructure:"ADMIN_DISPLAY_NAME"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	RecentActivityLimit int      `mapstructure:"RECENT_ACTIVITY_LIMIT"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FILE",
	"STORAGE_BACKEND", "STORAGE_NAMESPACE", "DATA_DIR",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGO_URI", "MONGO_DATABASE", "ENCRYPTION_KEY",
	"SESSION_SIGNING_KEY", "SESSION_TTL",
	"ADMIN_USERNAME", "ADMIN_PASSWORD_HASH", "ADMIN_DISPLAY_NAME",
	"CORS_ORIGINS", "RECENT_ACTIVITY_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("STORAGE_NAMESPACE", "dashboard")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MONGO_DATABASE", "dashboard")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_DISPLAY_NAME", "Dr. Admin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RECENT_ACTIVITY_LIMIT", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a session token act as a built-in developer account.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionDuration parses SESSION_TTL.
func (c *Config) SessionDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("SESSION_TTL is not a valid duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return d, nil
}

// Validate checks that the configuration is safe to run. Each storage backend
// needs its own connection settings; outside development a session signing
// key and an admin password hash are required.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when STORAGE_BACKEND is %q", BackendFile)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_BACKEND is %q", BackendMongo)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"memory\", \"file\", \"postgres\", or \"mongo\", got %q", c.StorageBackend)
	}

	if c.StorageNamespace == "" {
		return fmt.Errorf("STORAGE_NAMESPACE cannot be empty")
	}

	if c.EncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.EncryptionKey)
		if err != nil {
			return fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if _, err := c.SessionDuration(); err != nil {
		return err
	}
	if c.RecentActivityLimit <= 0 {
		return fmt.Errorf("RECENT_ACTIVITY_LIMIT must be positive, got %d", c.RecentActivityLimit)
	}

	if !c.IsDev() {
		if len(c.SessionSigningKey) < 32 {
			return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 characters outside development")
		}
		if c.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH is required outside development")
		}
	}

	return nil
}
