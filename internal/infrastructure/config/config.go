package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Auction      AuctionConfig      `koanf:"auction"`
	Bidding      BiddingConfig      `koanf:"bidding"`
	Notification NotificationConfig `koanf:"notification"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuctionConfig carries item-level defaults applied when an item does not
// override them.
type AuctionConfig struct {
	DefaultAntiSnipingWindow time.Duration `koanf:"default_anti_sniping_window"`
	DefaultMaxExtensions     int           `koanf:"default_max_extensions"`
	CloserInterval           time.Duration `koanf:"closer_interval"`
	CloserBatchSize          int           `koanf:"closer_batch_size"`
}

// BiddingConfig tunes the submission path's serialization behavior.
type BiddingConfig struct {
	MaxSaveRetries int           `koanf:"max_save_retries"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
	LockWait       time.Duration `koanf:"lock_wait"`
}

type NotificationConfig struct {
	BufferSize int `koanf:"buffer_size"`
	Workers    int `koanf:"workers"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Auction: AuctionConfig{
			DefaultAntiSnipingWindow: 2 * time.Minute,
			DefaultMaxExtensions:     0,
			CloserInterval:           15 * time.Second,
			CloserBatchSize:          100,
		},
		Bidding: BiddingConfig{
			MaxSaveRetries: 3,
			RetryBackoff:   25 * time.Millisecond,
			LockTTL:        5 * time.Second,
			LockWait:       2 * time.Second,
		},
		Notification: NotificationConfig{
			BufferSize: 1024,
			Workers:    4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional; environment variables win over it.
	_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())

	if err := k.Load(env.Provider("BAB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BAB_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would misbehave silently at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewConfigurationError(fmt.Sprintf("invalid server port %d", c.Server.Port))
	}
	if c.Auction.DefaultAntiSnipingWindow < 0 {
		return errors.NewConfigurationError("anti-sniping window must not be negative")
	}
	if c.Auction.DefaultMaxExtensions < 0 {
		return errors.NewConfigurationError("max extensions must not be negative")
	}
	if c.Bidding.MaxSaveRetries < 0 {
		return errors.NewConfigurationError("max save retries must not be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.BurstSize < 0 {
		return errors.NewConfigurationError("rate limit settings must not be negative")
	}
	return nil
}
