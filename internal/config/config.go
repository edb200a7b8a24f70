package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/michalkw/traffic-status-service/internal/traffic"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Ingest      IngestConfig
	Cache       CacheConfig
	Notifier    NotifierConfig
	Payments    PaymentsConfig
	Streets     []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL                string
	IncidentExchange   string
	IncidentQueue      string
	IncidentRoutingKey string
	DLQQueue           string
	PrefetchCount      int
}

// IngestConfig holds ingestion gateway settings
type IngestConfig struct {
	DuplicateWindow time.Duration
}

// CacheConfig holds read-endpoint response cache settings
type CacheConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
	TTL      time.Duration
}

// NotifierConfig holds notification delivery settings
type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// PaymentsConfig holds the external payment-session collaborator settings
type PaymentsConfig struct {
	SessionURL string
	Timeout    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "traffic-status-service"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			IncidentExchange:   getEnv("RABBITMQ_INCIDENT_EXCHANGE", "traffic-status.incidents.exchange"),
			IncidentQueue:      getEnv("RABBITMQ_INCIDENT_QUEUE", "traffic-status.incidents.queue"),
			IncidentRoutingKey: getEnv("RABBITMQ_INCIDENT_ROUTING_KEY", "incident.reported"),
			DLQQueue:           getEnv("RABBITMQ_DLQ_QUEUE", "traffic-status.incidents.dlq"),
			PrefetchCount:      getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Ingest: IngestConfig{
			DuplicateWindow: getEnvAsDuration("INGEST_DUPLICATE_WINDOW_SECONDS", 10*time.Second),
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "memory"),
			RedisURL: getEnv("CACHE_REDIS_URL", ""),
			TTL:      getEnvAsDuration("CACHE_TTL_SECONDS", 30*time.Second),
		},
		Notifier: NotifierConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			SessionURL: getEnv("PAYMENTS_SESSION_URL", ""),
			Timeout:    getEnvAsDuration("PAYMENTS_TIMEOUT_SECONDS", 10*time.Second),
		},
		Streets: getEnvAsList("STREETS", traffic.DefaultStreets),
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisURL == "" {
		return nil, fmt.Errorf("CACHE_REDIS_URL is required when CACHE_BACKEND=redis")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
