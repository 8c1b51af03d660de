package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the service
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	RedisURL string

	KafkaBrokers     []string
	EventTopicPrefix string

	// ProgressLocation is the calendar used to bucket attempts into days
	ProgressLocation *time.Location

	Casdoor CasdoorConfig
}

// CasdoorConfig holds identity provider settings
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:             GetEnv("PORT", "8080"),
		Environment:      GetEnv("ENVIRONMENT", "development"),
		LogLevel:         parseLogLevel(GetEnv("LOG_LEVEL", "info")),
		DatabaseURL:      GetEnv("DATABASE_URL"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 5),
		RedisURL:         GetEnv("REDIS_URL"),
		KafkaBrokers:     splitList(GetEnv("KAFKA_BROKERS")),
		EventTopicPrefix: GetEnv("EVENT_TOPIC_PREFIX", "quiz"),
		Casdoor: CasdoorConfig{
			Endpoint:     GetEnv("CASDOOR_ENDPOINT"),
			ClientID:     GetEnv("CASDOOR_CLIENT_ID"),
			ClientSecret: GetEnv("CASDOOR_CLIENT_SECRET"),
			Cert:         GetEnv("CASDOOR_CERT"),
			Organization: GetEnv("CASDOOR_ORGANIZATION"),
			Application:  GetEnv("CASDOOR_APPLICATION"),
		},
	}

	loc, err := time.LoadLocation(GetEnv("PROGRESS_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROGRESS_TIMEZONE: %w", err)
	}
	cfg.ProgressLocation = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Casdoor.Endpoint == "" || c.Casdoor.ClientID == "" {
		return fmt.Errorf("CASDOOR_ENDPOINT and CASDOOR_CLIENT_ID are required")
	}
	return nil
}

// GetEnv returns the value of key, or the first fallback when unset
func GetEnv(key string, fallback ...string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
