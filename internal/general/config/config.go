package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. DISPATCH_DATABASE_HOST.
const EnvPrefix = "DISPATCH"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Services ServicesConfig `mapstructure:"services"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"database"`
}

type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`

	Heartbeat           time.Duration `mapstructure:"heartbeat"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnect_max_backoff"`
}

type ServicesConfig struct {
	DispatchServicePort int    `mapstructure:"dispatch_service"`
	PublicBaseURL       string `mapstructure:"public_base_url"`
}

type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ChatConfig tunes the conversation channel.
type ChatConfig struct {
	MaxAttachmentBytes   int64 `mapstructure:"max_attachment_bytes"`
	BookingWindowMinutes int   `mapstructure:"booking_window_minutes"`
}

// LoadFromFile loads config from a YAML file (env overrides win), applies defaults, and validates required fields.
// An empty path loads from defaults and environment only.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// default values
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "")
	v.SetDefault("rabbitmq.password", "")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.heartbeat", "10s")
	v.SetDefault("rabbitmq.reconnect_max_backoff", "30s")
	v.SetDefault("services.dispatch_service", 3010)
	v.SetDefault("services.public_base_url", "")
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.ttl", "2h")
	v.SetDefault("chat.max_attachment_bytes", 10<<20)
	v.SetDefault("chat.booking_window_minutes", 30)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// applyDefaults sets safe defaults for derived fields.
func applyDefaults(cfg *Config) {
	if cfg.Services.PublicBaseURL == "" {
		cfg.Services.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Services.DispatchServicePort)
	}
	cfg.Services.PublicBaseURL = strings.TrimRight(cfg.Services.PublicBaseURL, "/")

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Services
	if c.Services.DispatchServicePort <= 0 || c.Services.DispatchServicePort > 65535 {
		problems = append(problems, "services.dispatch_service must be in 1..65535")
	}

	// JWT
	if c.JWT.TTL <= 0 {
		problems = append(problems, "jwt.ttl must be positive")
	}

	// Chat
	if c.Chat.MaxAttachmentBytes <= 0 {
		problems = append(problems, "chat.max_attachment_bytes must be positive")
	}
	if c.Chat.BookingWindowMinutes <= 0 {
		problems = append(problems, "chat.booking_window_minutes must be positive")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
