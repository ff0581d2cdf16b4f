// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"famcoin.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DevMode swaps the PIN authenticator for a bypass strategy and issues
	// non-expiring sessions. Never enable outside local development.
	DevMode bool `envconfig:"DEV_MODE" default:"false"`

	// FamcoinRate is how many FAMCOINs one whole currency unit buys when a
	// sequence budget is converted at creation time.
	FamcoinRate int `envconfig:"FAMCOIN_RATE" default:"10"`

	// PIN verification rate limit, per client IP.
	PINAttemptLimit  int `envconfig:"PIN_ATTEMPT_LIMIT" default:"30"`
	PINWindowSeconds int `envconfig:"PIN_WINDOW_SECONDS" default:"60"`

	// S3-compatible photo storage. Uploads are disabled when the bucket or
	// keys are empty.
	S3Endpoint    string `envconfig:"S3_ENDPOINT" default:""`
	S3Bucket      string `envconfig:"S3_BUCKET" default:""`
	S3Region      string `envconfig:"S3_REGION" default:"auto"`
	S3AccessKey   string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey   string `envconfig:"S3_SECRET_KEY" default:""`
	PhotoBaseURL  string `envconfig:"PHOTO_BASE_URL" default:""`
	MaxPhotoBytes int64  `envconfig:"MAX_PHOTO_BYTES" default:"10485760"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("famcoin", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.FamcoinRate <= 0 {
		return nil, fmt.Errorf("famcoin rate must be positive, got %d", cfg.FamcoinRate)
	}
	return &cfg, nil
}
