// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTP       HTTPConfig
	DB         DBConfig
	Uploads    UploadsConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Events     EventsConfig
	Monitoring MonitoringConfig
	Log        LogConfig
}

type HTTPConfig struct {
	Port       string `env:"PORT,default=8080"`
	GinMode    string `env:"GIN_MODE"`
	CORSOrigin string `env:"CORS_ORIGIN,default=*"`
}

type DBConfig struct {
	Driver      string `env:"STORE_DRIVER,default=postgres"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE,default=true"`

	// URL selects the pgx driver. When empty the discrete settings below
	// are assembled into a lib/pq connection string.
	URL       string `env:"DATABASE_URL"`
	ForceIPv4 bool   `env:"DB_FORCE_IPV4,default=false"`

	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=postgres"`
	Password string `env:"DB_PASSWORD,default=password"`
	Name     string `env:"DB_NAME,default=pins"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`

	MaxOpenConns           int `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns           int `env:"DB_MAX_IDLE_CONNS,default=25"`
	ConnMaxIdleMinutes     int `env:"DB_CONN_MAX_IDLE_MINUTES,default=5"`
	ConnMaxLifetimeMinutes int `env:"DB_CONN_MAX_LIFETIME_MINUTES,default=30"`
}

// ConnString returns a lib/pq keyword/value connection string.
func (c DBConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type UploadsConfig struct {
	Path         string `env:"UPLOADS_PATH,default=./uploads"`
	PublicPrefix string `env:"UPLOADS_PUBLIC_PREFIX,default=/src"`
	MaxSizeBytes int64  `env:"MAX_UPLOAD_SIZE_BYTES,default=10485760"`
	MaxParallel  int    `env:"MAX_PARALLEL_UPLOADS,default=8"`
}

type RateLimitConfig struct {
	// RPS <= 0 disables the limiter.
	RPS   float64 `env:"RATE_LIMIT_RPS,default=0"`
	Burst int     `env:"RATE_LIMIT_BURST,default=20"`
}

type CacheConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	TTL           time.Duration `env:"CACHE_TTL,default=5m"`
}

type EventsConfig struct {
	NATSURL string `env:"NATS_URL"`
}

type MonitoringConfig struct {
	APIKey string `env:"MONITORING_API_KEY"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "" {
		c.DB.Driver = StoreDriverPostgres
	}
	c.DB.URL = strings.TrimSpace(c.DB.URL)

	if c.DB.MaxOpenConns <= 0 {
		c.DB.MaxOpenConns = 25
	}
	if c.DB.MaxIdleConns <= 0 {
		c.DB.MaxIdleConns = 25
	}
	if c.DB.ConnMaxIdleMinutes <= 0 {
		c.DB.ConnMaxIdleMinutes = 5
	}
	if c.DB.ConnMaxLifetimeMinutes <= 0 {
		c.DB.ConnMaxLifetimeMinutes = 30
	}

	if c.Uploads.MaxSizeBytes <= 0 {
		c.Uploads.MaxSizeBytes = 10 << 20
	}
	if c.Uploads.MaxParallel <= 0 {
		c.Uploads.MaxParallel = 8
	}
	if c.Uploads.PublicPrefix == "" {
		c.Uploads.PublicPrefix = "/src"
	}
	if !strings.HasPrefix(c.Uploads.PublicPrefix, "/") {
		c.Uploads.PublicPrefix = "/" + c.Uploads.PublicPrefix
	}
	c.Uploads.PublicPrefix = strings.TrimRight(c.Uploads.PublicPrefix, "/")
	if c.Uploads.PublicPrefix == "" {
		c.Uploads.PublicPrefix = "/src"
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
}

// Validate rejects settings that cannot be normalized.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.Uploads.Path) == "" {
		return errors.New("UPLOADS_PATH must not be empty")
	}
	return nil
}
