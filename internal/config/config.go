package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Feed      FeedConfig
	Validator ValidatorConfig
	Alerts    AlertConfig
	Twilio    TwilioConfig
	SMTP      SMTPConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	DiffLog   DiffLogConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"abc-inventory-monitor"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	DryRun      bool   `envconfig:"DRY_RUN" default:"false"`
	Verbose     bool   `envconfig:"VERBOSE" default:"false"`
}

// ServerConfig holds settings for the admin HTTP server.
type ServerConfig struct {
	Enabled         bool          `envconfig:"SERVER_ENABLED" default:"true"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AdminKey        string        `envconfig:"ADMIN_KEY" default:""`
}

// FeedConfig holds inventory feed settings. URL is the CSV export endpoint;
// LocalPath, when set, short-circuits the download and reads a file instead
// (used by tests and offline runs).
type FeedConfig struct {
	URL             string        `envconfig:"FEED_URL" default:""`
	LocalPath       string        `envconfig:"FEED_LOCAL_PATH" default:""`
	DownloadTimeout time.Duration `envconfig:"FEED_DOWNLOAD_TIMEOUT" default:"30s"`
	CheckInterval   time.Duration `envconfig:"FEED_CHECK_INTERVAL" default:"15m"`
	CycleSleep      time.Duration `envconfig:"FEED_CYCLE_SLEEP" default:"60s"`
}

// ValidatorConfig holds the snapshot plausibility guard settings.
type ValidatorConfig struct {
	MaxDrop         int `envconfig:"VALIDATOR_MAX_DROP" default:"2"`
	StableDownloads int `envconfig:"VALIDATOR_STABLE_DOWNLOADS" default:"10"`
}

// AlertConfig holds dispatch limits and pacing for outbound alerts.
type AlertConfig struct {
	MaxSMSChars  int           `envconfig:"ALERT_MAX_SMS_CHARS" default:"1200"`
	MaxSMSItems  int           `envconfig:"ALERT_MAX_SMS_ITEMS" default:"10"`
	MinSendDelay time.Duration `envconfig:"ALERT_MIN_SEND_DELAY" default:"1s"`
	EmailSubject string        `envconfig:"ALERT_EMAIL_SUBJECT" default:"Inventory Alert"`
}

// TwilioConfig holds SMS delivery credentials.
type TwilioConfig struct {
	AccountSID string `envconfig:"TWILIO_ACCOUNT_SID" default:""`
	AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN" default:""`
	FromNumber string `envconfig:"TWILIO_FROM_SMS_NUMBER" default:""`
}

// SMTPConfig holds email delivery settings.
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:""`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME" default:""`
	Password string `envconfig:"SMTP_PASSWORD" default:""`
	From     string `envconfig:"SMTP_FROM" default:""`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"DB_PATH" default:"./data/clients.db"`
	// MySQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"inventory_monitor"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// MongoConfig holds the remote preference-document mirror settings.
type MongoConfig struct {
	URI        string `envconfig:"MONGODB_URI" default:""`
	Database   string `envconfig:"MONGODB_DATABASE" default:"inventory_monitor"`
	Collection string `envconfig:"MONGODB_COLLECTION" default:"clients"`
}

// RedisConfig holds the send-queue spool settings.
type RedisConfig struct {
	Enabled   bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host      string `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD" default:""`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"abcmon:smsqueue"`
}

// DiffLogConfig holds the optional snapshot diff artifact settings.
type DiffLogConfig struct {
	Enabled bool   `envconfig:"DIFF_LOG_ENABLED" default:"false"`
	Path    string `envconfig:"DIFF_LOG_PATH" default:"./data/inventory_diff.json"`
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (r *RedisConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
