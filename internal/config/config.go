package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV"`
	Server    ServerConfig    `yaml:"server"`
	Contact   ContactConfig   `yaml:"contact"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `yaml:"host" env:"SERVER_HOST"`
	Port           string   `yaml:"port" env:"SERVER_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" env:"SERVER_MAX_BODY_BYTES"`
	GlobalRPS      float64  `yaml:"global_rps" env:"GLOBAL_RPS"`
	GlobalBurst    int      `yaml:"global_burst" env:"GLOBAL_BURST"`
}

// ContactConfig holds the contact pipeline settings
type ContactConfig struct {
	To                 string `yaml:"to" env:"CONTACT_TO"`
	From               string `yaml:"from" env:"CONTACT_FROM"`
	OwnerName          string `yaml:"owner_name" env:"CONTACT_OWNER_NAME"`
	StrictFields       bool   `yaml:"strict_fields" env:"CONTACT_STRICT_FIELDS"`
	BlockDisposable    bool   `yaml:"block_disposable" env:"CONTACT_BLOCK_DISPOSABLE"`
	MaxAttachmentBytes int64  `yaml:"max_attachment_bytes" env:"CONTACT_MAX_ATTACHMENT_BYTES"`

	AltEmail          string `yaml:"alt_email" env:"ALT_CONTACT_EMAIL"`
	AltLinkedInURL    string `yaml:"alt_linkedin_url" env:"ALT_LINKEDIN_URL"`
	AltWhatsAppNumber string `yaml:"alt_whatsapp_number" env:"ALT_WHATSAPP_NUMBER"`
}

// RateLimitConfig holds per-IP limiter settings
type RateLimitConfig struct {
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
	Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	// Backend is "memory" or "redis"
	Backend string `yaml:"backend" env:"RATE_LIMIT_BACKEND"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// EmailConfig selects and configures the email provider
type EmailConfig struct {
	Provider    string        `yaml:"provider" env:"EMAIL_PROVIDER"`
	SendTimeout time.Duration `yaml:"send_timeout" env:"EMAIL_SEND_TIMEOUT"`

	ResendAPIKey  string `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	ResendBaseURL string `yaml:"resend_base_url" env:"RESEND_BASE_URL"`

	AWSRegion          string `yaml:"aws_region" env:"AWS_REGION"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`

	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUsername string `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	AddSource  bool   `yaml:"add_source" env:"LOG_ADD_SOURCE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
}

// Load reads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile uses the YAML file at path as the base layer when path is not
// empty. Environment variables always override file values.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is fine, the process environment is used as is
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service misbehave at runtime
func (c *Config) Validate() error {
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	switch c.Email.Provider {
	case "log", "resend", "ses", "smtp":
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	return nil
}

// IsProduction reports whether diagnostic detail must be hidden from clients
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// EmailConfigured reports whether the selected provider has its credentials
func (c *Config) EmailConfigured() bool {
	switch c.Email.Provider {
	case "resend":
		return c.Email.ResendAPIKey != ""
	case "ses":
		return c.Email.AWSRegion != ""
	case "smtp":
		return c.Email.SMTPHost != ""
	case "log":
		return true
	}
	return false
}

func (c *Config) applyDefaults() {
	c.Env = "development"
	c.Server = ServerConfig{
		Host:           "0.0.0.0",
		Port:           "8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   8 << 20,
		GlobalRPS:      20,
		GlobalBurst:    40,
	}
	c.Contact = ContactConfig{
		OwnerName:          "Portfolio",
		BlockDisposable:    true,
		MaxAttachmentBytes: 5 << 20,
	}
	c.RateLimit = RateLimitConfig{
		Requests: 5,
		Window:   15 * time.Minute,
		Backend:  "memory",
	}
	c.Email = EmailConfig{
		Provider:      "log",
		SendTimeout:   15 * time.Second,
		ResendBaseURL: "https://api.resend.com",
		SMTPPort:      587,
	}
	c.Logging = LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}
