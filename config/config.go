package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration tree.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Events      EventsConfig      `mapstructure:"events"`
	RetryPolicy RetryPolicyConfig `mapstructure:"retry_policy"`
	Log         LogConfig         `mapstructure:"log"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// DatabaseConfig configures the MySQL pool. PoolingDisabled switches to
// a fresh connection per use.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PoolingDisabled bool          `mapstructure:"pooling_disabled"`
	LogLevel        string        `mapstructure:"log_level"`
	TxRetry         TxRetryConfig `mapstructure:"tx_retry"`
}

// TxRetryConfig tunes transaction retry on deadlocks and lock timeouts.
type TxRetryConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	InitialDelay       time.Duration `mapstructure:"initial_delay"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
	BackoffFactor      float64       `mapstructure:"backoff_factor"`
	JitterEnabled      bool          `mapstructure:"jitter_enabled"`
	RetryOnDeadlock    bool          `mapstructure:"retry_on_deadlock"`
	RetryOnLockTimeout bool          `mapstructure:"retry_on_lock_timeout"`
}

// EventsConfig picks the event sink and tunes the outbox dispatcher.
type EventsConfig struct {
	// Sink is one of "log", "memory", "outbox". Empty falls back to the
	// log sink with a one-time warning.
	Sink         string        `mapstructure:"sink"`
	TopicPrefix  string        `mapstructure:"topic_prefix"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PublishRate  float64       `mapstructure:"publish_rate"`
	PublishBurst int           `mapstructure:"publish_burst"`
}

// RetryPolicyConfig parametrises payment order retry selection.
type RetryPolicyConfig struct {
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryAfter       time.Duration `mapstructure:"retry_after"`
	DenyFailureCodes []string      `mapstructure:"deny_failure_codes"`
}

// LogConfig configures the process logger and its file rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	Output     string `mapstructure:"output"` // stdout, file
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// IsDevelopment reports whether the env is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction reports whether the env is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Load reads the configuration file, falling back to defaults plus
// PAYCORE_* environment overrides when no file is present.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PAYCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "paycore")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", "development")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "paycore")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "10m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.pooling_disabled", false)
	v.SetDefault("database.log_level", "warn")

	// Transaction retry
	v.SetDefault("database.tx_retry.enabled", true)
	v.SetDefault("database.tx_retry.max_attempts", 3)
	v.SetDefault("database.tx_retry.initial_delay", "100ms")
	v.SetDefault("database.tx_retry.max_delay", "2s")
	v.SetDefault("database.tx_retry.backoff_factor", 2.0)
	v.SetDefault("database.tx_retry.jitter_enabled", true)
	v.SetDefault("database.tx_retry.retry_on_deadlock", true)
	v.SetDefault("database.tx_retry.retry_on_lock_timeout", true)

	// Events
	v.SetDefault("events.sink", "log")
	v.SetDefault("events.topic_prefix", "paycore.events")
	v.SetDefault("events.poll_interval", "1s")
	v.SetDefault("events.batch_size", 100)
	v.SetDefault("events.max_retries", 5)
	v.SetDefault("events.publish_rate", 200)
	v.SetDefault("events.publish_burst", 50)

	// Payment order retry policy
	v.SetDefault("retry_policy.max_retries", 3)
	v.SetDefault("retry_policy.retry_after", "30m")
	v.SetDefault("retry_policy.deny_failure_codes", []string{
		"fraud_detected", "sanctioned_entity", "invalid_account",
	})

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "logs/paycore.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
}
