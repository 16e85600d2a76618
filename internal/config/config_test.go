package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Notifications.Capacity != 100 {
		t.Errorf("expected notification capacity 100, got %d", cfg.Notifications.Capacity)
	}
	if !cfg.Notifications.Enabled {
		t.Error("expected notifications enabled by default")
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("expected a one minute window, got %s", cfg.RateLimit.Window)
	}
	if cfg.Kafka.Enabled() {
		t.Error("expected Kafka mirror disabled without brokers")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("DB_USER", "stock")
	t.Setenv("DB_PASSWORD", "s3cr:t")
	t.Setenv("DB_DATABASE", "stockroom")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "5")

	cfg := Load()

	if cfg.Server.Port != "9090" || cfg.Server.Env != "production" {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Kafka.Enabled() || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected two Kafka brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Notifications.Enabled {
		t.Error("expected notifications disabled")
	}
	if cfg.RateLimit.Window != 5*time.Second {
		t.Errorf("expected 5s window, got %s", cfg.RateLimit.Window)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "stock",
		Password: "p@ss word",
		Database: "stockroom",
		Schema:   "public",
		SSLMode:  "disable",
	}

	want := "postgres://stock:p%40ss%20word@db:5432/stockroom?sslmode=disable&search_path=public"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: "6380"}
	if cfg.Addr() != "cache:6380" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}
