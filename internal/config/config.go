package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinBcryptCost is the lowest password hashing cost the server accepts
const MinBcryptCost = 12

// Config holds server settings
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	Email    EmailConfig    `yaml:"email"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"`
	BodyLimit  string `yaml:"body_limit"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite"
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	EmailVerification bool          `yaml:"email_verification"`
	AppBaseURL        string        `yaml:"app_base_url"` // Used in verification links
}

// AdminConfig describes the global admin ensured at boot
type AdminConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type EmailConfig struct {
	From         string `yaml:"from"`
	ResendAPIKey string `yaml:"resend_api_key"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPass     string `yaml:"smtp_pass"`
}

// SMTPEnabled returns true when enough SMTP settings are present to send mail
func (e EmailConfig) SMTPEnabled() bool {
	return e.SMTPHost != "" && e.SMTPUser != "" && e.SMTPPass != ""
}

type LogConfig struct {
	Level   string `yaml:"level"`   // DEBUG, INFO, WARN, ERROR
	File    string `yaml:"file"`    // Empty disables file output
	Console bool   `yaml:"console"` // Log to stderr
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":4000",
			CORSOrigin: "http://localhost:5173",
			BodyLimit:  "1M",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskflow.db",
		},
		Auth: AuthConfig{
			TokenTTL:          7 * 24 * time.Hour,
			BcryptCost:        MinBcryptCost,
			EmailVerification: true,
			AppBaseURL:        "http://localhost:5173",
		},
		Admin: AdminConfig{
			Name:  "Admin",
			Email: "admin@taskflow.local",
		},
		Email: EmailConfig{
			From:     "TaskFlow <no-reply@taskflow.local>",
			SMTPPort: 587,
		},
		Log: LogConfig{
			Level:   "INFO",
			Console: true,
		},
	}
}

// DefaultPath returns ~/.taskflow/server.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "server.yaml"
	}
	return filepath.Join(home, ".taskflow", "server.yaml")
}

// Load reads the YAML file at path (a missing file means defaults) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.CORSOrigin = getEnv("CORS_ORIGIN", c.Server.CORSOrigin)

	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.DSN = url
		if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
			c.Database.Driver = "postgres"
		}
	}
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AppBaseURL = getEnv("APP_BASE_URL", c.Auth.AppBaseURL)
	if v := os.Getenv("EMAIL_VERIFICATION"); v != "" {
		c.Auth.EmailVerification = strings.EqualFold(v, "true")
	}

	c.Admin.Email = getEnv("ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = getEnv("ADMIN_PASSWORD", c.Admin.Password)

	c.Email.From = getEnv("EMAIL_FROM", c.Email.From)
	c.Email.ResendAPIKey = getEnv("RESEND_API_KEY", c.Email.ResendAPIKey)
	c.Email.SMTPHost = getEnv("SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPUser = getEnv("SMTP_USER", c.Email.SMTPUser)
	c.Email.SMTPPass = getEnv("SMTP_PASS", c.Email.SMTPPass)
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		c.Email.SMTPPort = port
	}

	c.Log.Level = getEnv("TASKFLOW_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("TASKFLOW_LOG_FILE", c.Log.File)
	if v := os.Getenv("TASKFLOW_LOG_CONSOLE"); v != "" {
		c.Log.Console = v == "true"
	}
	return nil
}

// Validate checks settings the server cannot run without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.BcryptCost < MinBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be at least %d", MinBcryptCost)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn (DATABASE_URL) is required")
	}
	return nil
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
