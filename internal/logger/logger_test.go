package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"upload_password", "hunter2", "path", "/upload", "DB_DSN", "postgres://x"})
	if len(out) != 6 {
		t.Fatalf("expected 6 values, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("expected password to be redacted, got %v", out[1])
	}
	if out[3] != "/upload" {
		t.Fatalf("expected path to be kept, got %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("expected dsn to be redacted, got %v", out[5])
	}
}

func TestSanitizeKeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"status", 200, "orphan"})
	if len(out) != 3 || out[2] != "orphan" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}
	log.With("component", "test").Info("loaded tables", "attempts", 3, "password", "x")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "test" {
		t.Fatalf("missing component field: %v", fields)
	}
	if fields["attempts"] != int64(3) {
		t.Fatalf("unexpected attempts field: %v", fields["attempts"])
	}
	if fields["password"] != "[REDACTED]" {
		t.Fatalf("expected redacted password, got %v", fields["password"])
	}
}
