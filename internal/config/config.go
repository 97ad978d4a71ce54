package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server   string `json:"server"`
	WebBase  string `json:"web_base"`
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	// RequestTimeoutSec bounds each API call; RateLimit caps outbound
	// requests per second (0 = unlimited).
	RequestTimeoutSec int     `json:"request_timeout_sec"`
	RateLimit         float64 `json:"rate_limit"`

	Auth struct {
		// Token is a pre-provisioned access token that bypasses the
		// session store. Meant for CI; interactive use goes through login.
		Token string `json:"token"`
	} `json:"auth"`
	Google struct {
		ClientID     string `json:"client_id"`
		CallbackPort int    `json:"callback_port"`
	} `json:"google"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:            "http://localhost:8080",
		DataDir:           filepath.Join(os.Getenv("HOME"), ".areactl"),
		LogLevel:          "info",
		RequestTimeoutSec: 30,
	}
	cfg.Google.CallbackPort = 4242

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if server := os.Getenv("AREA_SERVER"); server != "" {
		cfg.Server = server
	}
	if webBase := os.Getenv("AREA_WEB_BASE"); webBase != "" {
		cfg.WebBase = webBase
	}
	if token := os.Getenv("AREA_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if clientID := os.Getenv("AREA_GOOGLE_CLIENT_ID"); clientID != "" {
		cfg.Google.ClientID = clientID
	}
	if port := os.Getenv("AREA_GOOGLE_CALLBACK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Google.CallbackPort = p
		}
	}

	return cfg, nil
}

// Save writes the config atomically, creating the parent directory when
// needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts the config to its JSON map form, the shape the dotted-key
// helpers operate on.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config map: %w", err)
	}
	return m, nil
}

// ListValues returns the flattened dot-keyed config, optionally with
// secret values masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config file and returns the value at the dotted key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue updates a dotted key in the config file. Values that parse as
// JSON keep their type; everything else is stored as a string.
func SetValue(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	flat := Flatten(m)
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		flat[key] = parsed
	} else {
		flat[key] = value
	}
	nested := Unflatten(flat)

	out, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
