package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"

	"github.com/xxxsen/votegate/internal/pkg/password"
)

type Config struct {
	Port                    int              `json:"port"`
	LogConfig               logger.LogConfig `json:"log_config"`
	Database                DatabaseConfig   `json:"database"`
	Session                 SessionConfig    `json:"session"`
	OTP                     OTPConfig        `json:"otp"`
	EligibilityCheckEnabled bool             `json:"eligibility_check_enabled"`
	Mail                    MailConfig       `json:"mail"`
	Admin                   AdminConfig      `json:"admin"`
	RateLimit               RateLimitConfig  `json:"rate_limit"`
	Questions               []Question       `json:"questions"`
	CORSAllowlist           []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type SessionConfig struct {
	Secret       string `json:"secret"`
	TTLMinutes   int    `json:"ttl_minutes"`
	CookieName   string `json:"cookie_name"`
	CookieSecure bool   `json:"cookie_secure"`
}

type OTPConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
}

type MailConfig struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
}

type AdminConfig struct {
	Username        string `json:"username"`
	PasswordHash    string `json:"password_hash"`
	TokenTTLMinutes int    `json:"token_ttl_minutes"`
}

type RateLimitConfig struct {
	WindowSeconds int `json:"window_seconds"`
	MaxKeys       int `json:"max_keys"`
}

// Question is one fixed answer slot of the ballot. Key doubles as the answer field name.
// Answers are required unless the question is marked optional.
type Question struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Prompt   string `json:"prompt"`
	Optional bool   `json:"optional"`
}

func (q Question) Required() bool {
	return !q.Optional
}

func DefaultQuestions() []Question {
	return []Question{
		{Key: "answer1", Title: "Question 1", Prompt: "Do you approve the **new regulation**?"},
		{Key: "answer2", Title: "Question 2", Prompt: "Do you approve the **budget**?"},
	}
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case "sqlite":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 60
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "votegate_session"
	}
	if cfg.OTP.TTLSeconds == 0 {
		cfg.OTP.TTLSeconds = 300
	}
	if cfg.Mail.Type == "" {
		cfg.Mail.Type = "smtp"
	}
	switch cfg.Mail.Type {
	case "smtp":
		if cfg.Mail.Host == "" || cfg.Mail.Port == 0 || strings.TrimSpace(cfg.Mail.From) == "" {
			return fmt.Errorf("mail host/port/from are required for smtp mail")
		}
	case "log":
	default:
		return fmt.Errorf("mail.type must be smtp or log")
	}
	if cfg.Mail.Subject == "" {
		cfg.Mail.Subject = "Your voting access code"
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.Admin.PasswordHash == "" {
		return fmt.Errorf("admin.password_hash is required")
	}
	if err := password.Validate(cfg.Admin.PasswordHash); err != nil {
		return fmt.Errorf("admin.password_hash is not a bcrypt hash: %w", err)
	}
	if cfg.Admin.TokenTTLMinutes == 0 {
		cfg.Admin.TokenTTLMinutes = 720
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 30
	}
	if cfg.RateLimit.MaxKeys == 0 {
		cfg.RateLimit.MaxKeys = 10000
	}
	if len(cfg.Questions) == 0 {
		cfg.Questions = DefaultQuestions()
	}
	seen := make(map[string]struct{}, len(cfg.Questions))
	for i, q := range cfg.Questions {
		if q.Key == "" {
			return fmt.Errorf("questions[%d].key is required", i)
		}
		if _, ok := seen[q.Key]; ok {
			return fmt.Errorf("questions[%d].key %q is duplicated", i, q.Key)
		}
		seen[q.Key] = struct{}{}
	}
	if len(cfg.Questions) != 2 {
		return fmt.Errorf("exactly 2 questions are supported, got %d", len(cfg.Questions))
	}
	return nil
}
