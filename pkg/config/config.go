package config

import (
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dealshield-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                     // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// AI model endpoint used for contract analysis and generation
	AI AIConfig `yaml:"ai"`

	// Object storage for contract files and generated reports
	Storage StorageConfig `yaml:"storage"`

	// Asynchronous AI-job handler settings
	Jobs JobsConfig `yaml:"jobs"`

	// Outbound mail settings
	Mail MailConfig `yaml:"mail"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSURL is the JWKS endpoint used to verify token signatures.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dealshield"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dealshield_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds LLM endpoint configuration.
// Provider selects the client implementation: "openai" targets any
// OpenAI-compatible endpoint, "anthropic" targets the Anthropic API.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
}

// StorageConfig holds S3-compatible object storage configuration.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:"localhost:9000"`
	AccessKey     string `yaml:"-" env:"STORAGE_ACCESS_KEY"` // Secret - not in YAML
	SecretKey     string `yaml:"-" env:"STORAGE_SECRET_KEY"` // Secret - not in YAML
	Bucket        string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"dealshield-contracts"`
	UseSSL        bool   `yaml:"use_ssl" env:"STORAGE_USE_SSL" env-default:"false"`
	URLExpiryMins int    `yaml:"url_expiry_mins" env:"STORAGE_URL_EXPIRY_MINS" env-default:"60"`
}

// JobsConfig holds settings for the asynchronous AI-job protocol.
// HandlerURL is where the enqueuer posts work; it defaults to this same
// server's internal handler and exists so the handler can be split out
// into a dedicated worker deployment.
type JobsConfig struct {
	HandlerURL   string `yaml:"handler_url" env:"JOBS_HANDLER_URL" env-default:""` // Auto-derived from BaseURL if empty
	SharedSecret string `yaml:"-" env:"JOBS_SHARED_SECRET"`                        // Secret - not in YAML
}

// MailConfig holds SMTP settings for outbound notifications.
// If Host is empty, mail delivery degrades to structured logging.
type MailConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:""`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-default:""`
	Password string `yaml:"-" env:"SMTP_PASSWORD"` // Secret - not in YAML
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"noreply@dealshield.app"`

	// ReviewInbox receives legal-review notifications. Empty disables them.
	ReviewInbox string `yaml:"review_inbox" env:"SMTP_REVIEW_INBOX" env-default:""`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	// The job handler lives on this server unless split out
	if cfg.Jobs.HandlerURL == "" {
		cfg.Jobs.HandlerURL = cfg.BaseURL + "/internal/ai-jobs"
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
