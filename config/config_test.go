package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACCESS_SECRET", "secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != ":8080" || cfg.GRPCPort != ":50051" {
		t.Fatalf("unexpected ports %s %s", cfg.HTTPPort, cfg.GRPCPort)
	}
	if cfg.PaymentTimeout != 10*time.Second || cfg.CheckoutSessionTTL != 30*time.Minute {
		t.Fatalf("unexpected durations %s %s", cfg.PaymentTimeout, cfg.CheckoutSessionTTL)
	}
	if cfg.StorageDriver != StorageDriverPostgres || cfg.Currency != "USD" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := "ACCESS_SECRET=from-file\nSTORAGE_DRIVER=memory\nCHECKOUT_SESSION_TTL=15m\nALLOWED_ORIGINS=https://a.example,https://b.example\nSEED_DEMO=true\n"
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(file), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ACCESS_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessSecret != "from-env" {
		t.Fatalf("environment must win over the file, got %s", cfg.AccessSecret)
	}
	if cfg.StorageDriver != StorageDriverMemory || cfg.CheckoutSessionTTL != 15*time.Minute || !cfg.SeedDemo {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("ACCESS_SECRET", "")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("missing ACCESS_SECRET must fail")
	}

	t.Setenv("ACCESS_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "mongo")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("unknown storage driver must fail")
	}
}
