package dbconfig

import (
	"testing"
	"time"
)

func TestDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "party")
	t.Setenv("DB_PASSWORD", "s3cr@t/pw")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_APPLICATION_NAME", "")

	got := NewConfigFromEnv().DSN()
	want := "postgres://party:s3cr%40t%2Fpw@db:6543/quizparty?application_name=quizparty&sslmode=disable"
	if got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestDatabaseURLOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@elsewhere/x")
	t.Setenv("DB_PORT", "not-a-port")

	cfg := NewConfigFromEnv()
	if cfg.Port != 5432 {
		t.Fatalf("bad DB_PORT should fall back to 5432, got %d", cfg.Port)
	}
	if got := cfg.DSN(); got != "postgres://u:p@elsewhere/x" {
		t.Fatalf("DSN = %q", got)
	}
}

func TestPoolSettings(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_MAX_IDLE_CONNS", "")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")

	cfg := NewConfigFromEnv()
	if cfg.MaxOpenConns != 40 || cfg.MaxIdleConns != 5 || cfg.ConnMaxLifetime != 5*time.Minute {
		t.Fatalf("pool settings = %d/%d/%v", cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	}
}
