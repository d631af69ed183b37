package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type MobizonConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	DryRun   bool   `yaml:"dry_run"`
	BaseURL  string `yaml:"base_url"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PublicConfig: политика публичного доступа (коды, сессии, ссылки).
type PublicConfig struct {
	FrontendBaseURL string        `yaml:"frontend_base_url"`
	CodeTTL         time.Duration `yaml:"code_ttl"`
	MaxAttempts     int           `yaml:"max_attempts"`
	SessionIdleTTL  time.Duration `yaml:"session_idle_ttl"`
	SessionMaxTTL   time.Duration `yaml:"session_max_ttl"`
	InitialLinkTTL  time.Duration `yaml:"initial_link_ttl"`
	ReminderLinkTTL time.Duration `yaml:"reminder_link_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Redis RedisConfig `yaml:"redis"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Mobizon   MobizonConfig   `yaml:"mobizon"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Public    PublicConfig    `yaml:"public"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

func (c *Config) IsDev() bool { return c.Env == "" || c.Env == "dev" }

// LoadConfig для main: при ошибке паникуем.
func LoadConfig() *Config {
	path := os.Getenv("REGISTRAR_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func Load(path string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Database.DSN, "DATABASE_URL")
	override(&c.Redis.URL, "REDIS_URL")
	override(&c.Auth.JWTSecret, "JWT_SECRET")
	override(&c.Mobizon.APIKey, "MOBIZON_API_KEY")
	override(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	override(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	override(&c.Public.FrontendBaseURL, "FRONTEND_BASE_URL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	p := &c.Public
	if p.CodeTTL == 0 {
		p.CodeTTL = 10 * time.Minute
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 5
	}
	if p.SessionIdleTTL == 0 {
		p.SessionIdleTTL = 30 * time.Minute
	}
	if p.SessionMaxTTL == 0 {
		p.SessionMaxTTL = 2 * time.Hour
	}
	if p.InitialLinkTTL == 0 {
		p.InitialLinkTTL = 7 * 24 * time.Hour
	}
	if p.ReminderLinkTTL == 0 {
		p.ReminderLinkTTL = 24 * time.Hour
	}
	if p.FrontendBaseURL == "" {
		p.FrontendBaseURL = "http://localhost:3000"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

func (c *Config) Validate() error {
	p := c.Public
	switch {
	case p.MaxAttempts < 1:
		return errors.New("public.max_attempts must be >= 1")
	case p.CodeTTL < 0 || p.SessionIdleTTL < 0 || p.SessionMaxTTL < 0 || p.InitialLinkTTL < 0 || p.ReminderLinkTTL < 0:
		return errors.New("public TTLs must be positive")
	case p.SessionMaxTTL < p.SessionIdleTTL:
		return errors.New("public.session_max_ttl must be >= public.session_idle_ttl")
	case c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0:
		return errors.New("rate_limit values must be positive")
	}
	if c.Auth.JWTSecret == "" && !c.IsDev() {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required outside dev")
	}
	return nil
}
