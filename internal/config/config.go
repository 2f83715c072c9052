package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/drawcast.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	AnchorZone        string        `env:"ANCHOR_ZONE" envDefault:"Asia/Kolkata"`
	RolloverHour      int           `env:"ROLLOVER_HOUR" envDefault:"6"`
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"30s"`

	// RedisURL enables the day-results cache. Empty disables it.
	RedisURL      string        `env:"REDIS_URL"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	AdminEmail    string        `env:"ADMIN_EMAIL" envDefault:"admin@drawcast.local"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	SeedDemo      bool          `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.RolloverHour < 0 || c.RolloverHour > 23 {
		errs = append(errs, fmt.Errorf("ROLLOVER_HOUR must be within 0-23, got %d", c.RolloverHour))
	}
	if c.KeepAliveInterval <= 0 {
		errs = append(errs, fmt.Errorf("KEEPALIVE_INTERVAL must be positive, got %s", c.KeepAliveInterval))
	}
	if c.AnchorZone == "" {
		errs = append(errs, errors.New("ANCHOR_ZONE is required"))
	}
	return errors.Join(errs...)
}
