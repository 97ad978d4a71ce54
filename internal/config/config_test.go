package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		Server:            "https://api.example.com",
		WebBase:           "https://app.example.com",
		DataDir:           "/tmp/test-data",
		LogLevel:          "debug",
		RequestTimeoutSec: 15,
		RateLimit:         2.5,
	}
	original.Auth.Token = "ci-token-123"
	original.Google.ClientID = "client-abc"
	original.Google.CallbackPort = 9000

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server != original.Server {
		t.Errorf("Server mismatch: %v != %v", loaded.Server, original.Server)
	}
	if loaded.WebBase != original.WebBase {
		t.Errorf("WebBase mismatch: %v != %v", loaded.WebBase, original.WebBase)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.RateLimit != original.RateLimit {
		t.Errorf("RateLimit mismatch: %v != %v", loaded.RateLimit, original.RateLimit)
	}
	if loaded.Auth.Token != original.Auth.Token {
		t.Errorf("Auth.Token mismatch: %v != %v", loaded.Auth.Token, original.Auth.Token)
	}
	if loaded.Google.ClientID != original.Google.ClientID {
		t.Errorf("Google.ClientID mismatch: %v != %v", loaded.Google.ClientID, original.Google.ClientID)
	}
	if loaded.Google.CallbackPort != original.Google.CallbackPort {
		t.Errorf("Google.CallbackPort mismatch: %v != %v", loaded.Google.CallbackPort, original.Google.CallbackPort)
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level=info, got %v", cfg.LogLevel)
	}
	if cfg.Server == "" {
		t.Error("expected non-empty default server")
	}
	if cfg.Google.CallbackPort == 0 {
		t.Error("expected non-zero default callback port")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist after first Load: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{Server: "http://from-file"})

	t.Setenv("AREA_SERVER", "http://from-env")
	t.Setenv("AREA_TOKEN", "env-token")
	t.Setenv("AREA_GOOGLE_CLIENT_ID", "env-client")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != "http://from-env" {
		t.Errorf("expected env override for server, got %v", cfg.Server)
	}
	if cfg.Auth.Token != "env-token" {
		t.Errorf("expected env override for auth token, got %v", cfg.Auth.Token)
	}
	if cfg.Google.ClientID != "env-client" {
		t.Errorf("expected env override for google client id, got %v", cfg.Google.ClientID)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		DataDir:  "/tmp/test",
		LogLevel: "debug",
	}
	cfg.Google.ClientID = "client-abc"
	cfg.Google.CallbackPort = 4242

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}

	google, ok := m["google"].(map[string]any)
	if !ok {
		t.Fatalf("expected google to be map, got %T", m["google"])
	}
	if google["client_id"] != "client-abc" {
		t.Errorf("expected google.client_id=client-abc, got %v", google["client_id"])
	}
	// JSON numbers are float64
	if google["callback_port"] != float64(4242) {
		t.Errorf("expected google.callback_port=4242, got %v", google["callback_port"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	cfg.Auth.Token = "tok-secret-1234"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if flat["auth.token"] != "***1234" {
		t.Errorf("expected masked auth.token=***1234, got %v", flat["auth.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{
		LogLevel:  "debug",
		RateLimit: 8,
	}
	cfg.Google.ClientID = "client-abc"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "google.client_id")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "client-abc" {
		t.Errorf("expected google.client_id=client-abc, got %v", v)
	}

	v, err = GetValue(path, "rate_limit")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected rate_limit=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{LogLevel: "info"})

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Google.ClientID = "client-old"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "google.client_id", "client-new"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "rate_limit", "2.5"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}
	v, _ = GetValue(path, "google.client_id")
	if v != "client-new" {
		t.Errorf("expected google.client_id=client-new, got %v", v)
	}
	v, _ = GetValue(path, "rate_limit")
	if v != 2.5 {
		t.Errorf("expected rate_limit=2.5, got %v (%T)", v, v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}
