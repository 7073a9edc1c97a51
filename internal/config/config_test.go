package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Addr != nil || cfg.Cohort.ScoreFloor != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9000"

[source]
kind = "sqlite"

[cohort]
new-graduates-only = true
score-floor = 10.5

[display]
hour-offset = 7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr: %v", cfg.Server.Addr)
	}
	if cfg.Source.Kind == nil || *cfg.Source.Kind != "sqlite" {
		t.Fatalf("unexpected source kind: %v", cfg.Source.Kind)
	}
	if cfg.Cohort.NewGraduatesOnly == nil || !*cfg.Cohort.NewGraduatesOnly {
		t.Fatalf("expected new-graduates-only")
	}
	if cfg.Cohort.ScoreFloor == nil || *cfg.Cohort.ScoreFloor != 10.5 {
		t.Fatalf("unexpected score floor: %v", cfg.Cohort.ScoreFloor)
	}
	if cfg.Display.HourOffset == nil || *cfg.Display.HourOffset != 7 {
		t.Fatalf("unexpected hour offset: %v", cfg.Display.HourOffset)
	}
	if cfg.Display.WeekdayShift != nil {
		t.Fatalf("expected weekday shift to stay unset")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv(EnvDBHost, "")
	t.Setenv(EnvDBPort, "")
	t.Setenv(EnvUploadPassword, "")
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.DB.Configured() {
		t.Fatalf("expected postgres to be unconfigured")
	}
	if cfg.UploadEnabled() {
		t.Fatalf("expected upload to be disabled without a password")
	}
	if cfg.DB.Port != 5432 {
		t.Fatalf("unexpected default port: %d", cfg.DB.Port)
	}
}

func TestLoadEnvPostgres(t *testing.T) {
	t.Setenv(EnvDBHost, "db.local")
	t.Setenv(EnvDBPort, "6543")
	t.Setenv(EnvDBUser, "reader")
	t.Setenv(EnvDBPassword, "p@ss")
	t.Setenv(EnvDBName, "typing")
	t.Setenv(EnvUploadPassword, "letmein")
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if !cfg.UploadEnabled() {
		t.Fatalf("expected upload enabled")
	}
	dsn := cfg.DB.DSN()
	for _, want := range []string{"postgres://reader:", "@db.local:6543/typing", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestLoadEnvRejectsBadPort(t *testing.T) {
	t.Setenv(EnvDBPort, "abc")
	if _, err := LoadEnv(); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadDotEnvSetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TYPEDASH_TEST_DOTENV=hello\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("TYPEDASH_TEST_DOTENV")
	})
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if got := os.Getenv("TYPEDASH_TEST_DOTENV"); got != "hello" {
		t.Fatalf("unexpected value %q", got)
	}
}
