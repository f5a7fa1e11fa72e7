package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := LoadConfig(dir); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if cfg.Interview.MaxQuestions != 6 {
		t.Errorf("MaxQuestions = %d, want 6", cfg.Interview.MaxQuestions)
	}
	if cfg.Provider.Name != "anthropic" {
		t.Errorf("Provider.Name = %q, want anthropic", cfg.Provider.Name)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := LoadConfig(dir); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Provider = Provider{Name: "ollama", Model: "llama3.2", Host: "http://localhost:11434"}
	cfg.Interview.MaxQuestions = 4
	if err := SaveConfig(&cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	if err := LoadConfig(dir); err != nil {
		t.Fatalf("reload LoadConfig() error = %v", err)
	}
	got, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got.Provider.Name != "ollama" || got.Interview.MaxQuestions != 4 {
		t.Errorf("reloaded config = %+v, want saved values", got)
	}
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := LoadConfig(dir); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Provider.Name = "carrier-pigeon"
	if err := SaveConfig(&cfg); err == nil {
		t.Error("expected error saving config with unknown provider")
	}

	cfg = DefaultConfig()
	cfg.Interview.MaxQuestions = 0
	if err := SaveConfig(&cfg); err == nil {
		t.Error("expected error saving config with zero max_questions")
	}
}

func TestLoadConfigSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ProjectDirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}

	stale := DefaultConfig()
	stale.SchemaVersion = SchemaVersion + 1
	data, _ := json.Marshal(stale)
	if err := os.WriteFile(filepath.Join(cfgDir, ConfigFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(dir); err == nil {
		t.Error("expected schema version mismatch error")
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	secrets := map[string]string{"ANTHROPIC_API_KEY": "sk-test-123"}
	if err := EncryptSecretsFile(dir, "hunter2", secrets); err != nil {
		t.Fatalf("EncryptSecretsFile() error = %v", err)
	}
	if !SecretsFileExists(dir) {
		t.Fatal("secrets file missing after encrypt")
	}

	got, err := DecryptSecretsFile(dir, "hunter2")
	if err != nil {
		t.Fatalf("DecryptSecretsFile() error = %v", err)
	}
	if got["ANTHROPIC_API_KEY"] != "sk-test-123" {
		t.Errorf("decrypted secret = %q, want sk-test-123", got["ANTHROPIC_API_KEY"])
	}

	if _, err := DecryptSecretsFile(dir, "wrong-password"); err == nil {
		t.Error("expected decryption failure with wrong password")
	}
}

func TestGetSecretPrecedence(t *testing.T) {
	SetDecryptedSecrets(map[string]string{"TEST_KEY_A": "from-file"})
	t.Setenv("TEST_KEY_A", "from-env")
	t.Setenv("TEST_KEY_B", "env-only")

	if v, err := GetSecret("TEST_KEY_A"); err != nil || v != "from-file" {
		t.Errorf("GetSecret(TEST_KEY_A) = (%q, %v), want from-file", v, err)
	}
	if v, err := GetSecret("TEST_KEY_B"); err != nil || v != "env-only" {
		t.Errorf("GetSecret(TEST_KEY_B) = (%q, %v), want env-only", v, err)
	}
	if _, err := GetSecret("TEST_KEY_MISSING"); err == nil {
		t.Error("expected error for missing secret")
	}
}
