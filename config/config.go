package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLM configures the language generation provider.
type LLM struct {
	Provider    string        `mapstructure:"provider"`    // "gemini" or "openai"
	Model       string        `mapstructure:"model"`       // e.g. "gemini-2.5-flash"
	APIKeyEnv   string        `mapstructure:"api_key_env"` // Name of the environment variable holding the API key
	APIKey      string        `mapstructure:"-"`
	BaseURL     string        `mapstructure:"base_url"` // Overrides the provider endpoint
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	HistorySize int           `mapstructure:"history_size"`
}

// Mail configures the SMTP relay used for account email. An empty host
// leaves reset links in the log.
type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	ResetURL string `mapstructure:"reset_url"` // the token is appended
}

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
		Mode string `mapstructure:"mode"` // gin mode: debug, release, test
	} `mapstructure:"server"`
	Database struct {
		DSN string `mapstructure:"dsn"` // "memory" or a SQLite file path
	} `mapstructure:"database"`
	Redis struct {
		URL string `mapstructure:"url"` // empty selects the in-memory stores
	} `mapstructure:"redis"`
	Session struct {
		TTL           time.Duration `mapstructure:"ttl"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"session"`
	Mail   Mail `mapstructure:"mail"`
	LLM    LLM  `mapstructure:"llm"`
	Triage struct {
		HistoryLimit int `mapstructure:"history_limit"`
	} `mapstructure:"triage"`
	Hub struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"hub"`
	Safety struct {
		EmergencyURL string `mapstructure:"emergency_url"` // human emergency channel offered with every alert
	} `mapstructure:"safety"`
	Lock struct {
		MaxAttempts int           `mapstructure:"max_attempts"`
		Cooldown    time.Duration `mapstructure:"cooldown"`
	} `mapstructure:"lock"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
}

// AppConfig is the global configuration instance, set by LoadConfig.
var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.dsn", "memory")
	v.SetDefault("redis.url", "")
	v.SetDefault("session.ttl", 30*24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.from_name", "KFM Counsel")
	v.SetDefault("mail.reset_url", "http://localhost:3000/reset-password?token=")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.history_size", 10)
	v.SetDefault("triage.history_limit", 100)
	v.SetDefault("hub.limit", 50)
	v.SetDefault("safety.emergency_url", "https://wa.me/2349061130702")
	v.SetDefault("lock.max_attempts", 5)
	v.SetDefault("lock.cooldown", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads config.yaml from the usual locations (or the explicit file when
// path is set), applies KFM_* environment overrides and resolves the LLM API
// key. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("../config")
	}

	v.SetEnvPrefix("KFM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// SERVER_PORT is honoured for platforms that inject it.
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config: unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.Triage.HistoryLimit < 0 {
		return errors.New("config: triage.history_limit must not be negative")
	}
	if c.Hub.Limit <= 0 {
		return errors.New("config: hub.limit must be positive")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("config: session.sweep_interval must not be negative")
	}
	if c.Lock.MaxAttempts < 0 || c.Lock.Cooldown < 0 {
		return errors.New("config: lock.max_attempts and lock.cooldown must not be negative")
	}
	return nil
}
