package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Policy.RecommendThreshold != 80 {
		t.Fatalf("threshold=%v want=80", cfg.Policy.RecommendThreshold)
	}
	if cfg.Ingestion.TTL != 24*time.Hour {
		t.Fatalf("ttl=%v want=24h", cfg.Ingestion.TTL)
	}
	if cfg.Ingestion.Window != "calendar_day" {
		t.Fatalf("window=%q", cfg.Ingestion.Window)
	}
	if cfg.Store.Backend != "memory" || cfg.Cache.Backend != "memory" {
		t.Fatalf("store=%q cache=%q", cfg.Store.Backend, cfg.Cache.Backend)
	}
	if len(cfg.Ingestion.Symbols) == 0 {
		t.Fatalf("expected default symbols")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SF_POLICY_RECOMMEND_THRESHOLD", "75")
	t.Setenv("SF_INGESTION_SYMBOLS", "eurusd, btcusdt")
	t.Setenv("SF_INGESTION_WORKERS", "2")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Policy.RecommendThreshold != 75 {
		t.Fatalf("threshold=%v want=75", cfg.Policy.RecommendThreshold)
	}
	if cfg.Ingestion.Workers != 2 {
		t.Fatalf("workers=%d want=2", cfg.Ingestion.Workers)
	}
	if len(cfg.Ingestion.Symbols) != 2 || cfg.Ingestion.Symbols[1] != "btcusdt" {
		t.Fatalf("symbols=%v", cfg.Ingestion.Symbols)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  http_addr: ":9999"
ingestion:
  symbols: ["XAUUSD", "EURUSD"]
  window: "6h"
store:
  backend: badger
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Fatalf("addr=%q", cfg.Server.HTTPAddr)
	}
	if cfg.Ingestion.Window != "6h" || cfg.Store.Backend != "badger" {
		t.Fatalf("window=%q backend=%q", cfg.Ingestion.Window, cfg.Store.Backend)
	}
	if len(cfg.Ingestion.Symbols) != 2 {
		t.Fatalf("symbols=%v", cfg.Ingestion.Symbols)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
