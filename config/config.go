package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

type Auth struct {
	JWTSecret        string `yaml:"jwtSecret"`
	AdminEmailDomain string `yaml:"adminEmailDomain"` // модераторская конвенция по домену почты
}

type Chat struct {
	TypingTTL               string `yaml:"typingTTL"`               // окно живости typing-маркера
	PresenceWindow          string `yaml:"presenceWindow"`          // окно свежести «онлайн»
	DefaultModerationStatus string `yaml:"defaultModerationStatus"` // pending|approved
	MaxMessageLen           int    `yaml:"maxMessageLen"`
	RecentLimit             int    `yaml:"recentLimit"`
	SendBurst               int    `yaml:"sendBurst"`     // burst лимитера отправки
	SendPerMinute           int    `yaml:"sendPerMinute"` // сообщений в минуту на пользователя
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	Chat     Chat     `yaml:"chat"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Auth.AdminEmailDomain == "" {
		c.Auth.AdminEmailDomain = "admin.com"
	}
	if c.Chat.DefaultModerationStatus == "" {
		c.Chat.DefaultModerationStatus = "approved"
	}
	if c.Chat.DefaultModerationStatus != "approved" && c.Chat.DefaultModerationStatus != "pending" {
		return errors.New("chat.defaultModerationStatus must be approved or pending")
	}
	if c.Chat.MaxMessageLen <= 0 {
		c.Chat.MaxMessageLen = 4000
	}
	if c.Chat.RecentLimit <= 0 {
		c.Chat.RecentLimit = 50
	}
	if c.Chat.SendBurst <= 0 {
		c.Chat.SendBurst = 5
	}
	if c.Chat.SendPerMinute <= 0 {
		c.Chat.SendPerMinute = 30
	}
	return nil
}

// TypingTTLDuration — 3 секунды, если не переопределено.
func (c *Chat) TypingTTLDuration() time.Duration {
	return parseDurationOr(3*time.Second, c.TypingTTL)
}

// PresenceWindowDuration — 5 минут, если не переопределено.
func (c *Chat) PresenceWindowDuration() time.Duration {
	return parseDurationOr(5*time.Minute, c.PresenceWindow)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
