package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.yaml")
	doc := `
party:
  question_seconds: 30
  max_players: 12
  retention: 24h
feed:
  heartbeat: 20s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Party.Timer.DefaultSeconds != 30 || cfg.Party.Timer.MaxSeconds != 120 {
		t.Fatalf("timer = %+v", cfg.Party.Timer)
	}
	if cfg.Party.MaxPlayers != 12 || cfg.membership().MaxPlayers != 12 {
		t.Fatalf("max players = %d", cfg.Party.MaxPlayers)
	}
	if cfg.Party.Retention != 24*time.Hour || cfg.Feed.Heartbeat != 20*time.Second {
		t.Fatalf("durations = %v %v", cfg.Party.Retention, cfg.Feed.Heartbeat)
	}
	if cfg.Feed.PollInterval != 2*time.Second || cfg.Presence.HostInactive != time.Minute {
		t.Fatal("unset fields lost their defaults")
	}
}

func TestLoadConfigRejectsBadBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.yaml")
	if err := os.WriteFile(path, []byte("party:\n  min_seconds: 60\n  max_seconds: 30\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != defaultConfig() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PARTY_TEST_INT", "42")
	t.Setenv("PARTY_TEST_BOOL", "nope")

	if getEnvAsInt("PARTY_TEST_INT", 1) != 42 || getEnvAsInt("PARTY_TEST_MISSING", 7) != 7 {
		t.Fatal("getEnvAsInt")
	}
	if !getEnvAsBool("PARTY_TEST_BOOL", true) {
		t.Fatal("unparsable bool should keep the default")
	}
}
