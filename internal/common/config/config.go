// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Prefs    PrefsConfig    `mapstructure:"preferences"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Delivery Channel Config ---

// EmailConfig holds settings for the transactional email channel (AWS SES).
// The channel is active only when Enabled is set and a sender identity is
// present; otherwise dispatch reports "not configured" and the queue processor
// is never started.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	AWSRegion string `mapstructure:"aws_region"`
}

// Configured reports whether the email channel can be activated.
func (e EmailConfig) Configured() bool {
	return e.Enabled && e.FromEmail != ""
}

// PushConfig holds settings for the Web Push channel. The VAPID key pair is
// the credential; with either key absent the channel degrades to a no-op.
type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"` // mailto: contact sent to the push service
	DefaultIcon     string `mapstructure:"default_icon"`
	DefaultBadge    string `mapstructure:"default_badge"`
	TTL             int    `mapstructure:"ttl"` // seconds
}

// Configured reports whether the push channel can be activated.
func (p PushConfig) Configured() bool {
	return p.Enabled && p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// QueueConfig holds settings for the email queue processor.
type QueueConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	BatchSize       int `mapstructure:"batch_size"`
	MaxAttempts     int `mapstructure:"max_attempts"`
}

// PrefsConfig holds settings for the notification preference store.
type PrefsConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// MetricsConfig holds settings for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
