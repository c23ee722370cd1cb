package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Webhooks      WebhooksConfig      `mapstructure:"webhooks"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string        `mapstructure:"path"`
	MaxConnections int           `mapstructure:"max_connections"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout"`
}

type AuthConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type WebhooksConfig struct {
	// SigningKey seeds subscription secret derivation. Rotating it rotates
	// every derived secret, so treat it like a root credential.
	SigningKey     string        `mapstructure:"signing_key"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	SecretCacheTTL time.Duration `mapstructure:"secret_cache_ttl"`
}

type NotificationsConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	WorkerCount     int           `mapstructure:"worker_count"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize  int           `mapstructure:"sweep_batch_size"`
}

type ScoringConfig struct {
	BrandTerm   string   `mapstructure:"brand_term"`
	Keywords    []string `mapstructure:"keywords"`
	Competitors []string `mapstructure:"competitors"`
}

type RateLimitConfig struct {
	IngestPerMinute   int `mapstructure:"ingest_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "data/callflow.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.busy_timeout", "5s")
	viper.SetDefault("webhooks.store_timeout", "5s")
	viper.SetDefault("webhooks.max_body_bytes", 1<<20)
	viper.SetDefault("webhooks.secret_cache_ttl", "1m")
	viper.SetDefault("notifications.queue_size", 1024)
	viper.SetDefault("notifications.worker_count", 4)
	viper.SetDefault("notifications.delivery_timeout", "10s")
	viper.SetDefault("notifications.max_attempts", 5)
	viper.SetDefault("notifications.sweep_interval", "5m")
	viper.SetDefault("notifications.sweep_batch_size", 100)
	viper.SetDefault("rate_limit.ingest_per_minute", 10000)
	viper.SetDefault("rate_limit.api_read_per_minute", 1000)
	viper.SetDefault("rate_limit.api_write_per_minute", 100)
	viper.SetDefault("logging.level", "info")
}
