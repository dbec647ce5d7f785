package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Ingest   IngestConfig
	Kafka    KafkaConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds cache backend configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProviderConfig holds the upstream price provider configuration
type ProviderConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// IngestConfig holds ingestion run defaults
type IngestConfig struct {
	Symbols    []string
	WindowDays int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers      []string
	EventTopic   string
	RequestTopic string
	GroupID      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockdata"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Provider: ProviderConfig{
			BaseURL:        getEnv("PROVIDER_BASE_URL", ""),
			TimeoutSeconds: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30),
		},
		Ingest: IngestConfig{
			Symbols:    splitSymbols(getEnv("STOCK_SYMBOLS", "AAPL,MSFT,GOOGL")),
			WindowDays: getEnvInt("INGEST_WINDOW_DAYS", 7),
		},
		Kafka: KafkaConfig{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			EventTopic:   getEnv("KAFKA_EVENT_TOPIC", "ingestion-events"),
			RequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "ingestion-requests"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "stock-data-service"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symbols = append(symbols, strings.ToUpper(trimmed))
		}
	}
	return symbols
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
