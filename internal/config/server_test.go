package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/arena?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.InteractionBurst != 5 {
		t.Fatalf("InteractionBurst = %d, want 5", cfg.InteractionBurst)
	}
	if cfg.StartingBalanceCC != 100 {
		t.Fatalf("StartingBalanceCC = %d, want 100", cfg.StartingBalanceCC)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/arena?sslmode=disable")
	t.Setenv("INTERACTION_RATE_PER_SEC", "0.5")
	t.Setenv("MIGRATE_ON_START", "1")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.InteractionRatePerSec != 0.5 {
		t.Fatalf("InteractionRatePerSec = %v, want 0.5", cfg.InteractionRatePerSec)
	}
	if !cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart = false, want true")
	}
}

func TestLoadOutboxBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "750ms")

	cfg, err := LoadOutbox()
	if err != nil {
		t.Fatalf("LoadOutbox() error = %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.PollInterval != 750*time.Millisecond {
		t.Fatalf("PollInterval = %v", cfg.PollInterval)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HTTP_ADDR=:9999\nARENA_ELO_K=32\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("ARENA_ELO_K", "")
	os.Unsetenv("ARENA_ELO_K")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("HTTP_ADDR"); got != ":7000" {
		t.Fatalf("HTTP_ADDR = %q, want :7000", got)
	}
	if got := os.Getenv("ARENA_ELO_K"); got != "32" {
		t.Fatalf("ARENA_ELO_K = %q, want 32", got)
	}
}
