package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// S3 configuration
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	// Working directory for staged downloads
	WorkDir string `mapstructure:"work-dir"`

	// Limits
	MaxImageSize int64 `mapstructure:"max-image-size"`
	MaxReselects int   `mapstructure:"max-reselects"`

	// Flash behavior
	UnmountOnSuccess bool `mapstructure:"unmount-on-success"`
	AutoAcceptRisk   bool `mapstructure:"auto-accept-risk"`

	// Drive scanning
	ScanIntervalSeconds int `mapstructure:"scan-interval-seconds"`

	// FSM configuration
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("sqlite-path", ".artifacts/sessions.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("s3-bucket", "")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("work-dir", "/tmp/drivescribe")
	viper.SetDefault("max-image-size", 64*1024*1024*1024)
	viper.SetDefault("max-reselects", 5)
	viper.SetDefault("unmount-on-success", true)
	viper.SetDefault("auto-accept-risk", false)
	viper.SetDefault("scan-interval-seconds", 2)
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (will be DRIVESCRIBE_SQLITE_PATH, etc.)
	viper.SetEnvPrefix("DRIVESCRIBE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.drivescribe")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work-dir cannot be empty")
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("max-image-size must be positive")
	}
	if c.MaxReselects < 0 {
		return fmt.Errorf("max-reselects must be non-negative")
	}
	if c.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("scan-interval-seconds must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}
