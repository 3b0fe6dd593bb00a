package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "port: \"8001\"\ndatabaseURL: \"echomechanic.db\"\ngeminiAPIKey: \"key\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AudioBackend != "disk" {
		t.Fatalf("unexpected audio backend: %q", cfg.AudioBackend)
	}
	if cfg.AudioDir != "data/audio" {
		t.Fatalf("unexpected audio dir: %q", cfg.AudioDir)
	}
	if cfg.MaxUploadBytes != 32<<20 {
		t.Fatalf("unexpected max upload bytes: %d", cfg.MaxUploadBytes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: \"8001\"\ndatabaseURL: \"echomechanic.db\"\ngeminiAPIKey: \"key\"\n")
	t.Setenv("DATABASE_URL", "postgres://db/echo")
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db/echo" {
		t.Fatalf("database url override not applied: %q", cfg.DatabaseURL)
	}
	if cfg.GeminiAPIKey != "env-key" {
		t.Fatalf("api key override not applied: %q", cfg.GeminiAPIKey)
	}
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	path := writeConfig(t, "port: \"8001\"\ndatabaseURL: \"echomechanic.db\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing gemini key")
	}
}

func TestLoadRejectsUnknownAudioBackend(t *testing.T) {
	path := writeConfig(t, "port: \"8001\"\ndatabaseURL: \"db\"\ngeminiAPIKey: \"key\"\naudioBackend: \"tape\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown audio backend")
	}
}

func TestLoadRequiresMinioSettings(t *testing.T) {
	path := writeConfig(t, "port: \"8001\"\ndatabaseURL: \"db\"\ngeminiAPIKey: \"key\"\naudioBackend: \"minio\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for incomplete minio settings")
	}
}
