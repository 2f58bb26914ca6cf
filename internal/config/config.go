package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Patients  PatientsConfig  `yaml:"patients"`
	Analyze   AnalyzeConfig   `yaml:"analyze"`
}

type ServerConfig struct {
	BindAddr string `yaml:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelemetryConfig struct {
	Channel      string `yaml:"channel"`
	PollInterval string `yaml:"pollInterval"` // e.g. "1s"
}

type AlertsConfig struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"` // e.g. "2s"
}

type PatientsConfig struct {
	UsersBaseURL   string `yaml:"usersBaseURL"`
	HistoryBaseURL string `yaml:"historyBaseURL"`
	Timeout        string `yaml:"timeout"`
}

type AnalyzeConfig struct {
	Window string `yaml:"window"` // backfill lookback, e.g. "1h"
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "vitalwatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Telemetry: TelemetryConfig{
			Channel:      getEnv("TELEMETRY_CHANNEL", "vital_signs_channel"),
			PollInterval: getEnv("TELEMETRY_POLL_INTERVAL", "1s"),
		},
		Alerts: AlertsConfig{
			BaseURL: getEnv("ALERTS_SERVICE_URL", "http://alerts-service:8000"),
			Timeout: getEnv("ALERTS_TIMEOUT", "2s"),
		},
		Patients: PatientsConfig{
			UsersBaseURL:   getEnv("USER_SERVICE_URL", "http://user-service:8000"),
			HistoryBaseURL: getEnv("PATIENT_DATA_SERVICE_URL", "http://patient-data-service:8000"),
			Timeout:        getEnv("PATIENTS_TIMEOUT", "2s"),
		},
		Analyze: AnalyzeConfig{
			Window: getEnv("ANALYZE_WINDOW", "1h"),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Telemetry.Channel == "" {
		cfg.Telemetry.Channel = "vital_signs_channel"
	}
	if cfg.Telemetry.PollInterval == "" {
		cfg.Telemetry.PollInterval = "1s"
	}
	if cfg.Alerts.Timeout == "" {
		cfg.Alerts.Timeout = "2s"
	}
	if cfg.Patients.Timeout == "" {
		cfg.Patients.Timeout = "2s"
	}
	if cfg.Analyze.Window == "" {
		cfg.Analyze.Window = "1h"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	return nil
}

// ParseDuration parses s, falling back to d when empty or invalid.
func ParseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
