package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Session struct {
		Path  string `yaml:"path"`
		TabID string `yaml:"tab_id"`
	} `yaml:"session"`
	Refresh struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"refresh"`
	Log struct {
		FilePath    string `yaml:"file_path"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`
	Timezone string `yaml:"timezone"`
}

// Load reads .env, then the process environment, then the optional YAML file
// named by ZENPULSE_CONFIG. Later sources override earlier ones.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{}
	cfg.API.BaseURL = getEnv("API_BASE_URL", "http://localhost:5000/api")
	cfg.API.Token = getEnv("API_TOKEN", "")
	cfg.API.Timeout = getEnvAsDuration("API_TIMEOUT", 15*time.Second)
	cfg.Telegram.Token = getEnv("TG_TOKEN", "")
	cfg.Telegram.ChatID = getEnvAsInt64("TG_CHAT_ID", 0)
	cfg.Server.Port = getEnvOrBlank("PORT", "8080")
	cfg.Session.Path = getEnv("SESSION_DB_PATH", "zenpulse-session.db")
	cfg.Session.TabID = getEnv("SESSION_TAB_ID", "default")
	cfg.Refresh.Schedule = getEnv("REFRESH_SCHEDULE", "@every 30s")
	cfg.Log.FilePath = getEnv("LOG_FILE_PATH", "zenpulse.log")
	cfg.Log.Environment = getEnv("GO_ENV", "development")
	cfg.Timezone = getEnv("TIMEZONE", "Local")

	if path := getEnv("ZENPULSE_CONFIG", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings every command needs. Telegram settings are
// optional; the bot is skipped when no token is set.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("API_BASE_URL is empty"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	if c.Session.Path == "" {
		errs = append(errs, errors.New("SESSION_DB_PATH is empty"))
	}
	if c.Session.TabID == "" {
		errs = append(errs, errors.New("SESSION_TAB_ID is empty"))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("TG_CHAT_ID is required when TG_TOKEN is set"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Log.Environment == "production"
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}

// ServerEnabled is false when PORT is set but empty, or the YAML overlay
// blanks the port.
func (c *Config) ServerEnabled() bool {
	return c.Server.Port != ""
}

// Location resolves the timezone used to decide which calendar day is "today".
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvOrBlank keeps an explicitly empty value; only an unset key falls back.
func getEnvOrBlank(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
