package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"tokencast/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	manager := config.NewManager(filepath.Join(t.TempDir(), "config.yml"))

	settings, err := manager.Load()
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if settings.Server.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", settings.Server.Addr)
	}
	if settings.Auth.AdminUsername != "operator" {
		t.Fatalf("expected default admin username, got %q", settings.Auth.AdminUsername)
	}
	if settings.SyncInterval() != 15*time.Second {
		t.Fatalf("expected default sync interval, got %v", settings.SyncInterval())
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	manager := config.NewManager(path)

	settings, err := manager.Load()
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	settings.Server.Addr = ":9999"
	settings.Auth.Secret = "test-secret"
	settings.Rooms.SyncIntervalSec = 120

	if err := manager.Save(settings); err != nil {
		t.Fatalf("save returned error: %v", err)
	}

	reloaded, err := config.NewManager(path).Load()
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if reloaded.Server.Addr != ":9999" {
		t.Fatalf("expected saved addr, got %q", reloaded.Server.Addr)
	}
	if reloaded.Auth.Secret != "test-secret" {
		t.Fatalf("expected saved secret to round trip")
	}
	if reloaded.SyncInterval() != 2*time.Minute {
		t.Fatalf("expected saved sync interval, got %v", reloaded.SyncInterval())
	}
}

func TestIntervalFallbacks(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Rooms.SyncIntervalSec = -1
	settings.PriceFeed.RefreshIntervalSec = 0

	if settings.SyncInterval() != 15*time.Second {
		t.Fatalf("expected fallback sync interval, got %v", settings.SyncInterval())
	}
	if settings.GoalRefreshInterval() != time.Minute {
		t.Fatalf("expected fallback refresh interval, got %v", settings.GoalRefreshInterval())
	}
}
