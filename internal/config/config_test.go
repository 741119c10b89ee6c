package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port '8080', got '%s'", cfg.Port)
	}
	if cfg.JWTSecret != "dev-secret-change-in-prod" {
		t.Errorf("expected default JWT secret, got '%s'", cfg.JWTSecret)
	}
	if cfg.ExportDir != "exports" {
		t.Errorf("expected default export dir 'exports', got '%s'", cfg.ExportDir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9999")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("KAFKA_BROKERS")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("expected port '9999', got '%s'", cfg.Port)
	}
	if cfg.KafkaBrokers != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("expected kafka brokers from env, got '%s'", cfg.KafkaBrokers)
	}
}
