package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadServer_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.SyncInterval != 15*time.Minute {
		t.Fatalf("expected 15m schedule, got %v", cfg.SyncInterval)
	}
	if cfg.DeviceTimeout != 30*time.Second {
		t.Fatalf("expected 30s device timeout, got %v", cfg.DeviceTimeout)
	}
	if !cfg.SyncEnabled || !cfg.MigrateOnStart {
		t.Fatalf("expected sync and migrations enabled by default: %+v", cfg)
	}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Fatalf("expected no brokers, got %v", got)
	}
}

func TestLoadServer_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SYNC_INTERVAL", "0")
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("SYNC_WORKERS", "8")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Fatalf("expected schedule disabled, got %v", cfg.SyncInterval)
	}
	if cfg.SyncEnabled {
		t.Fatalf("expected SYNC_ENABLED=false to be honoured")
	}
	if cfg.SyncWorkers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.SyncWorkers)
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", brokers)
	}
}

func TestLoadServer_RejectsNegativeInterval(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SYNC_INTERVAL", "-1m")

	if _, err := LoadServer(); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadClient(nil)
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.APIURL != "http://localhost:8081" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected local zone, got %v, %v", loc, err)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.HTTPTimeout)
	}
}

func TestLoadClient_OverridesAndValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	v.Set("BIOSYNC_API_URL", "not a url")
	if _, err := LoadClient(v); err == nil {
		t.Fatalf("expected invalid url error")
	}

	v = viper.New()
	v.Set("BIOSYNC_TIMEZONE", "Mars/Olympus")
	if _, err := LoadClient(v); err == nil {
		t.Fatalf("expected invalid timezone error")
	}

	v = viper.New()
	v.Set("BIOSYNC_API_URL", "https://biosync.example.com")
	v.Set("BIOSYNC_TIMEZONE", "UTC")
	cfg, err := LoadClient(v)
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	loc, _ := cfg.Location()
	if loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
