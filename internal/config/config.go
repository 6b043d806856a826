package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Printers PrintersConfig `yaml:"printers"`
	Preview  PreviewConfig  `yaml:"preview"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type StorageConfig struct {
	TemplatesDir      string `yaml:"templates_dir"`
	PrintersFile      string `yaml:"printers_file"`
	HistoryFile       string `yaml:"history_file"`
	PreviewsDir       string `yaml:"previews_dir"`
	HistoryMaxEntries int    `yaml:"history_max_entries"`
}

type PrintersConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	TestTimeout    time.Duration `yaml:"test_timeout"`
}

type PreviewConfig struct {
	Enabled        bool          `yaml:"enabled"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RetentionHours int           `yaml:"retention_hours"`
}

type AuthConfig struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			TemplatesDir:      "./data/templates",
			PrintersFile:      "./data/printers.json",
			HistoryFile:       "./data/history.json",
			PreviewsDir:       "./data/previews",
			HistoryMaxEntries: 1000,
		},
		Printers: PrintersConfig{
			ConnectTimeout: 10 * time.Second,
			SettleDelay:    500 * time.Millisecond,
			TestTimeout:    5 * time.Second,
		},
		Preview: PreviewConfig{
			Enabled:        true,
			BaseURL:        "http://api.labelary.com/v1/printers",
			Timeout:        10 * time.Second,
			RetentionHours: 24,
		},
		Auth: AuthConfig{
			Username: "admin",
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers environment overrides on top of whatever the file
// provided. Secrets are expected to arrive this way in deployments.
func (c *Config) applyEnv() {
	if v := os.Getenv("BARCODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("BARCODE_TEMPLATES_DIR"); v != "" {
		c.Storage.TemplatesDir = v
	}

	if v := os.Getenv("BARCODE_PRINTERS_FILE"); v != "" {
		c.Storage.PrintersFile = v
	}

	if v := os.Getenv("BARCODE_HISTORY_FILE"); v != "" {
		c.Storage.HistoryFile = v
	}

	if v := os.Getenv("BARCODE_PREVIEWS_DIR"); v != "" {
		c.Storage.PreviewsDir = v
	}

	if v := os.Getenv("BARCODE_ADMIN_USERNAME"); v != "" {
		c.Auth.Username = v
	}

	if v := os.Getenv("BARCODE_ADMIN_PASSWORD"); v != "" {
		c.Auth.Password = v
	}

	if v := os.Getenv("BARCODE_ADMIN_PASSWORD_HASH"); v != "" {
		c.Auth.PasswordHash = v
	}

	if v := os.Getenv("BARCODE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}

	if v := os.Getenv("BARCODE_LABELARY_URL"); v != "" {
		c.Preview.BaseURL = v
	}

	if v := os.Getenv("BARCODE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Storage.TemplatesDir == "" {
		return fmt.Errorf("templates directory is required")
	}

	if c.Storage.PrintersFile == "" {
		return fmt.Errorf("printers file path is required")
	}

	if c.Storage.HistoryFile == "" {
		return fmt.Errorf("history file path is required")
	}

	if c.Storage.HistoryMaxEntries < 1 {
		return fmt.Errorf("history max entries must be at least 1")
	}

	if c.Printers.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must be non-negative")
	}

	if c.Printers.SettleDelay < 0 {
		return fmt.Errorf("settle delay must be non-negative")
	}

	if c.Preview.Enabled && c.Preview.BaseURL == "" {
		return fmt.Errorf("preview base url is required when previews are enabled")
	}

	if c.Auth.Username == "" {
		return fmt.Errorf("auth username is required")
	}

	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return fmt.Errorf("auth password or password hash is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be positive")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
