package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for uptimepulse
type Config struct {
	API       APIConfig       `yaml:"api" json:"api"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	KV        KVConfig        `yaml:"kv" json:"kv"`
	Mail      MailConfig      `yaml:"mail" json:"mail"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
}

type LogConfig struct {
	Level   string `yaml:"level" json:"level"`
	Console bool   `yaml:"console" json:"console"`
	File    string `yaml:"file" json:"file"`
}

// APIConfig configures the thin control-plane HTTP surface.
type APIConfig struct {
	Host string    `yaml:"host" json:"host"`
	Port int       `yaml:"port" json:"port"`
	Logs LogConfig `yaml:"logs" json:"logs"`
}

// DatabaseConfig configures the durable store backing targets, probe logs,
// incidents, system config, and snapshots.
type DatabaseConfig struct {
	Path    string `yaml:"path" json:"path"`
	WALMode bool   `yaml:"wal_mode" json:"wal_mode"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// KVConfig configures the side-store holding the health ring and the
// resource-spike cooldown key.
type KVConfig struct {
	URL                string `yaml:"url" json:"url"`
	RingSize           int    `yaml:"ring_size" json:"ring_size"`
	CooldownTTLSeconds int    `yaml:"cooldown_ttl_seconds" json:"cooldown_ttl_seconds"`
}

// MailConfig configures outbound alert email delivery.
type MailConfig struct {
	DefaultFromEmail string `yaml:"default_from_email" json:"default_from_email"`
	SMTPHost         string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort         int    `yaml:"smtp_port" json:"smtp_port"`
	SMTPUsername     string `yaml:"smtp_username" json:"smtp_username"`
	SMTPPassword     string `yaml:"smtp_password" json:"smtp_password"`
}

// SchedulerConfig tunes the dispatch tick and worker pool.
type SchedulerConfig struct {
	TickIntervalSeconds int `yaml:"tick_interval_s" json:"tick_interval_s"`
	HealthTickSeconds   int `yaml:"health_tick_s" json:"health_tick_s"`
	MaxConcurrentProbes int `yaml:"max_concurrent_probes" json:"max_concurrent_probes"`
}

type JWTConfig struct {
	Secret       string `yaml:"secret" json:"secret"`
	ExpiresHours int    `yaml:"expires_hours" json:"expires_hours"`
}

// AuthConfig configures the thin control plane's JWT issuance.
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt" json:"jwt"`
}

// Global configuration instance
var globalConfig *Config

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	environment := os.Getenv("UPTIMEPULSE_ENV")
	if environment == "" {
		environment = "development"
	}

	// Determine config file path
	configPath := fmt.Sprintf("./configs/%s.yaml", environment)

	config := &Config{}

	// Load from file if exists
	if fileExists(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	} else {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Override with environment variables
	overrideWithEnv(config)

	// Auto-generate JWT secret if empty
	if config.Auth.JWT.Secret == "" && environment != "production" {
		config.Auth.JWT.Secret = generateRandomSecret(32)
	}

	// Validate configuration
	if err := validate(config, environment); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration instance
func Get() *Config {
	if globalConfig == nil {
		panic("configuration not loaded, call Load() first")
	}
	return globalConfig
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	// API configuration
	if val := os.Getenv("UPTIMEPULSE_API_HOST"); val != "" {
		config.API.Host = val
	}
	if val := os.Getenv("UPTIMEPULSE_API_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.API.Port = port
		}
	}

	// Database configuration
	if val := os.Getenv("UPTIMEPULSE_DB_PATH"); val != "" {
		config.Database.Path = val
	}
	if val := os.Getenv("UPTIMEPULSE_DB_WAL_MODE"); val != "" {
		config.Database.WALMode = strings.ToLower(val) == "true"
	}

	// KV configuration
	if val := os.Getenv("UPTIMEPULSE_KV_URL"); val != "" {
		config.KV.URL = val
	}
	if val := os.Getenv("UPTIMEPULSE_KV_RING_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.KV.RingSize = size
		}
	}

	// Mail configuration
	if val := os.Getenv("UPTIMEPULSE_MAIL_FROM"); val != "" {
		config.Mail.DefaultFromEmail = val
	}
	if val := os.Getenv("UPTIMEPULSE_MAIL_SMTP_HOST"); val != "" {
		config.Mail.SMTPHost = val
	}
	if val := os.Getenv("UPTIMEPULSE_MAIL_SMTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Mail.SMTPPort = port
		}
	}
	if val := os.Getenv("UPTIMEPULSE_MAIL_SMTP_USERNAME"); val != "" {
		config.Mail.SMTPUsername = val
	}
	if val := os.Getenv("UPTIMEPULSE_MAIL_SMTP_PASSWORD"); val != "" {
		config.Mail.SMTPPassword = val
	}

	// Scheduler configuration
	if val := os.Getenv("UPTIMEPULSE_SCHEDULER_TICK_INTERVAL_S"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Scheduler.TickIntervalSeconds = n
		}
	}
	if val := os.Getenv("UPTIMEPULSE_SCHEDULER_MAX_CONCURRENT_PROBES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Scheduler.MaxConcurrentProbes = n
		}
	}

	// Auth configuration
	if val := os.Getenv("UPTIMEPULSE_JWT_SECRET"); val != "" {
		config.Auth.JWT.Secret = val
	}
}

// validate validates the configuration
func validate(config *Config, environment string) error {
	if config.API.Host == "" {
		return fmt.Errorf("api.host cannot be empty")
	}
	if config.API.Port <= 0 || config.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d", config.API.Port)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}

	if config.KV.RingSize <= 0 {
		return fmt.Errorf("invalid kv.ring_size: %d", config.KV.RingSize)
	}
	if config.KV.CooldownTTLSeconds <= 0 {
		return fmt.Errorf("invalid kv.cooldown_ttl_seconds: %d", config.KV.CooldownTTLSeconds)
	}

	if config.Scheduler.TickIntervalSeconds <= 0 {
		return fmt.Errorf("invalid scheduler.tick_interval_s: %d", config.Scheduler.TickIntervalSeconds)
	}
	if config.Scheduler.MaxConcurrentProbes <= 0 {
		return fmt.Errorf("invalid scheduler.max_concurrent_probes: %d", config.Scheduler.MaxConcurrentProbes)
	}

	// JWT secret is required in production
	if environment == "production" && config.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret is required in production environment")
	}

	return nil
}

// generateRandomSecret generates a random secret for JWT
func generateRandomSecret(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random secret: %v", err))
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// fileExists checks if a file exists
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
