// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/golibrary/internal/logger"
)

// Database defaults.
const (
	defaultDatabasePort    = "5432"
	defaultDatabaseSSLMode = "disable"
)

// Server defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 15 * time.Second
	defaultServerWriteTimeout = 15 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Name == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// RedisConfig holds Redis connection settings for distributed locking and
// leader election.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds local content store settings.
type StorageConfig struct {
	// UploadDir is where crawled file bodies are staged.
	UploadDir string `mapstructure:"upload_dir"`
}

// CrawlConfig holds crawl-wide settings.
type CrawlConfig struct {
	// HTTPServiceURL is the default endpoint of the external web crawl
	// service, used when a crawler's options carry none.
	HTTPServiceURL string `mapstructure:"http_service_url"`
}

// ServerConfig holds admin HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  logger.Config  `mapstructure:"logging"`
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage upload_dir is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.port", defaultDatabasePort)
	v.SetDefault("database.sslmode", defaultDatabaseSSLMode)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", defaultServerReadTimeout)
	v.SetDefault("server.write_timeout", defaultServerWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultServerIdleTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
}

// Load reads configuration from path (optional) and the environment.
// Environment variables use the GOLIBRARY_ prefix with underscores, e.g.
// GOLIBRARY_DATABASE_HOST.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOLIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
