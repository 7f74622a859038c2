package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName string
	Env         string
	Port        string

	// Payment gateway collaborator.
	GatewayURL     string
	GatewayKey     string
	WebhookSecret  string
	Currency       string
	GatewayTimeout time.Duration

	// Persistence. Empty DatabaseURL keeps the in-memory repositories.
	DatabaseURL string
	// Notification queue. Empty RedisURL keeps the in-memory queue.
	RedisURL string
	// Event export. Empty KafkaBrokers disables the Kafka publisher.
	KafkaBrokers string
	KafkaTopic   string

	WorkerCount int
	MaxAttempts int
	BackoffBase time.Duration
	// Optional downstream webhook for order notifications. Empty disables
	// the webhook channel.
	NotifyWebhookURL string
}

func Load() *Config {
	return &Config{
		ServiceName: getenv("SERVICE_NAME", "serra-checkout"),
		Env:         getenv("ENV", "dev"),
		Port:        getenv("PORT", "8080"),

		GatewayURL:     getenv("GATEWAY_URL", "https://secure.telr.com/gateway/order.json"),
		GatewayKey:     os.Getenv("GATEWAY_AUTH_KEY"),
		WebhookSecret:  getenv("PAYMENT_WEBHOOK_SECRET", "dev-secret"),
		Currency:       getenv("CURRENCY", "AED"),
		GatewayTimeout: getduration("GATEWAY_TIMEOUT", 15*time.Second),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getenv("KAFKA_TOPIC", "order-events"),

		WorkerCount: getint("WORKER_COUNT", 4),
		MaxAttempts: getint("NOTIFY_MAX_ATTEMPTS", 3),
		BackoffBase: getduration("NOTIFY_BACKOFF_BASE", 2*time.Second),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
