package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agenda/internal/models"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app" toml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram" toml:"telegram"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Redis      RedisConfig      `yaml:"redis" toml:"redis"`
	Backup     BackupConfig     `yaml:"backup" toml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring" toml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	API        APIConfig        `yaml:"api" toml:"api"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Exports    ExportConfig     `yaml:"exports" toml:"exports"`
	Google     GoogleConfig     `yaml:"google" toml:"google"`
	Locations  []string         `yaml:"locations" toml:"locations"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled" toml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http" toml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc" toml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth" toml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled" toml:"enabled"`
	Port       int          `yaml:"port" toml:"port"`
	Reflection bool         `yaml:"reflection" toml:"reflection"`
	TLS        APITLSConfig `yaml:"tls" toml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled" toml:"enabled"`
	CertFile          string `yaml:"cert_file" toml:"cert_file"`
	KeyFile           string `yaml:"key_file" toml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file" toml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert" toml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled" toml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key" toml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra" toml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys" toml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key" toml:"key"`
	Extra       string   `yaml:"extra" toml:"extra"`
	Name        string   `yaml:"name" toml:"name"`
	Permissions []string `yaml:"permissions" toml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps" toml:"rps"`
	Burst int     `yaml:"burst" toml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name" toml:"name"`
	Environment string `yaml:"environment" toml:"environment"`
	Version     string `yaml:"version" toml:"version"`
	Timezone    string `yaml:"timezone" toml:"timezone"`
}

// Location resolves the configured timezone, falling back to the host zone.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type TelegramConfig struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	BotToken     string `yaml:"bot_token" toml:"bot_token"`
	ChatID       int64  `yaml:"chat_id" toml:"chat_id"`
	ReminderTime string `yaml:"reminder_time" toml:"reminder_time"`
	Debug        bool   `yaml:"debug" toml:"debug"`

	// Commands turns on the read-only command bot for the chat.
	Commands     bool    `yaml:"commands" toml:"commands"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" toml:"rate_limit_rps"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address" toml:"address"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	Interval      string `yaml:"interval" toml:"interval"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
	StoragePath   string `yaml:"storage_path" toml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled" toml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port" toml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level"`
	Format   string `yaml:"format" toml:"format"`
	Output   string `yaml:"output" toml:"output"`
	FilePath string `yaml:"file_path" toml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file" toml:"credentials_file"`
	ShowsSpreadSheetID    string `yaml:"shows_spreadsheet_id" toml:"shows_spreadsheet_id"`
	SheetName             string `yaml:"sheet_name" toml:"sheet_name"`
}

type AuthConfig struct {
	BcryptCost int           `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	SessionTTL time.Duration `yaml:"session_ttl" toml:"session_ttl"`

	// RequireSession gates show routes behind an admin or active user session.
	RequireSession bool `yaml:"require_session" toml:"require_session"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// expand ${ENV} references before parsing
	expandedData := os.ExpandEnv(string(data))

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if _, err := toml.Decode(expandedData, &config); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE") {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	if _, err := time.Parse(models.TimeLayout, c.Telegram.ReminderTime); err != nil {
		return fmt.Errorf("invalid telegram.reminder_time %q: %w", c.Telegram.ReminderTime, err)
	}

	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid app.timezone: %w", err)
		}
	}

	if c.Backup.Enabled {
		if _, err := time.ParseDuration(c.Backup.Interval); err != nil {
			return fmt.Errorf("invalid backup.interval: %w", err)
		}
	}

	return ValidateLocations(c.Locations)
}

// ValidateLocations rejects empty and duplicate (case-insensitive) venue names.
func ValidateLocations(names []string) error {
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return errors.New("location name must not be empty")
		}
		if seen[key] {
			return fmt.Errorf("duplicate location: %s", name)
		}
		seen[key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "agenda"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Telegram.ReminderTime == "" {
		c.Telegram.ReminderTime = fmt.Sprintf("%02d:00", models.ReminderHour)
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Shows"
	}
	if c.Backup.Interval == "" {
		c.Backup.Interval = "24h"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if len(c.Locations) == 0 {
		c.Locations = []string{"Bar do Zé", "Casa de Show XYZ"}
	}
}
