package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "masraf.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	for _, key := range []string{"LEDGER_BACKEND", "VISION_MAX_TOKENS", "HTTP_TIMEOUT", "TWILIO_VALIDATE_SIGNATURE", "PORT"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
	t.Setenv("PORT", "7000")

	path := writeConfigFile(t, `
ledger_backend: postgres
VISION_MAX_TOKENS: 2048
HTTP_TIMEOUT: 45s
TWILIO_VALIDATE_SIGNATURE: true
PORT: 8080
`)
	exported, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []string{"HTTP_TIMEOUT", "LEDGER_BACKEND", "TWILIO_VALIDATE_SIGNATURE", "VISION_MAX_TOKENS"}
	if !slices.Equal(exported, want) {
		t.Fatalf("exported=%v, want %v", exported, want)
	}

	cfg := Load()
	if cfg.Port != "7000" {
		t.Errorf("environment must win over file, Port=%q", cfg.Port)
	}
	if cfg.LedgerBackend != BackendPostgres || cfg.VisionMaxTokens != 2048 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.HTTPTimeout != 45*time.Second || !cfg.TwilioValidateSignature {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadFile(writeConfigFile(t, "PORT: [1, 2\n")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFile(writeConfigFile(t, "AMQP:\n  URL: amqp://x\n")); err == nil {
		t.Fatal("expected error for nested values")
	}
}
