package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// The supported session storage drivers
const (
	StorageInmem    = "inmem"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config represents the application configuration structure
type Config struct {
	Environment   string `default:"development"`
	ListenAddress string `default:":8080" split_words:"true"`

	BackendURL     string        `default:"http://localhost:8000" split_words:"true"`
	BackendTimeout time.Duration `default:"10s" split_words:"true"`

	CookieSecure    bool          `default:"false" split_words:"true"`
	SessionStorage  string        `default:"inmem" split_words:"true"`
	SessionLifetime time.Duration `default:"24h" split_words:"true"`
	SessionCacheTTL time.Duration `default:"30s" envconfig:"SESSION_CACHE_TTL"`
	RedisURL        string        `split_words:"true"`
	PostgresDSN     string        `envconfig:"POSTGRES_DSN"`
	LoginRateLimit  int           `default:"10" split_words:"true"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("td", config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return config.Environment == "production"
}

func (config *Config) validate() error {
	switch config.SessionStorage {
	case StorageInmem:
	case StorageRedis:
		if config.RedisURL == "" {
			return fmt.Errorf("session storage %q requires TD_REDIS_URL", config.SessionStorage)
		}
	case StoragePostgres:
		if config.PostgresDSN == "" {
			return fmt.Errorf("session storage %q requires TD_POSTGRES_DSN", config.SessionStorage)
		}
	default:
		return fmt.Errorf("unknown session storage %q", config.SessionStorage)
	}
	if config.SessionLifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive (got %s)", config.SessionLifetime)
	}
	if config.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive (got %s)", config.BackendTimeout)
	}
	if config.LoginRateLimit <= 0 {
		return fmt.Errorf("login rate limit must be positive (got %d)", config.LoginRateLimit)
	}
	return nil
}
