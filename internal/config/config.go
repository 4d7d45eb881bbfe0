// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EmailProviderSMTP = "smtp"
	EmailProviderSES  = "ses"
	EmailProviderLog  = "log"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	DatabaseURL   string `env:"DATABASE_URL"`
	PSQLHost      string `env:"PSQL_HOST" envDefault:"localhost"`
	PSQLPort      string `env:"PSQL_PORT" envDefault:"5432"`
	PSQLUser      string `env:"PSQL_USER" envDefault:"postgres"`
	PSQLPassword  string `env:"PSQL_PASSWORD"`
	PSQLDBName    string `env:"PSQL_DB_NAME" envDefault:"packshop"`
	PSQLSSLMode   string `env:"PSQL_SSL_MODE" envDefault:"disable"`
	AutoCreateDB  bool   `env:"AUTO_CREATE_DB" envDefault:"true"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`

	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"30m"`
	FrontendURL      string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AppName          string        `env:"APP_NAME" envDefault:"Barbara Décors"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"smtp"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"noreply@barbaradecors.fr"`
	SMTPHost      string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort      string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPUseTLS    bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"eu-west-3"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Bucket           string `env:"S3_BUCKET_NAME"`
	S3PublicBaseURL    string `env:"S3_PUBLIC_BASE_URL"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.buildDatabaseURL()
	}
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.PasswordResetTTL <= 0 {
		return nil, fmt.Errorf("PASSWORD_RESET_TTL must be positive")
	}
	if cfg.JWTExpiresIn <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	switch cfg.EmailProvider {
	case EmailProviderSMTP, EmailProviderSES, EmailProviderLog:
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q", cfg.EmailProvider)
	}

	return cfg, nil
}

// Validate checks the settings only the API server needs.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) buildDatabaseURL() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PSQLUser, c.PSQLPassword),
		Host:   c.PSQLHost + ":" + c.PSQLPort,
		Path:   c.PSQLDBName,
	}
	q := u.Query()
	q.Set("sslmode", c.PSQLSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
