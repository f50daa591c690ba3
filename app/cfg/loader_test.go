package cfg

import (
	"errors"
	"os"
	"testing"
)

var envKeys = []string{"PORT", "API_ACCESS_KEY", "MAX_BODY_BYTES", "MAX_ENTRIES", "STREAM_QUEUE_SIZE", "LOG_FORMAT", "DEBUG"}

// clearEnv unsets every configuration variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	old := Version
	Version = ""
	defer func() { Version = old }()

	if GetVersion() != "unknown" {
		t.Errorf("Expected 'unknown' for empty version, got '%s'", GetVersion())
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.MaxBodyBytes != 10485760 {
		t.Errorf("Expected max body bytes 10485760, got %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxEntries != 0 {
		t.Errorf("Expected unlimited entries, got %d", cfg.MaxEntries)
	}
	if cfg.StreamQueueSize != 16 {
		t.Errorf("Expected stream queue size 16, got %d", cfg.StreamQueueSize)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected log format 'json', got '%s'", cfg.LogFormat)
	}
	if cfg.Debug {
		t.Error("Expected debug to be disabled")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromEnvAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("API_ACCESS_KEY", "secret")
	t.Setenv("MAX_ENTRIES", "25")

	cfg, err := LoadArgs([]string{"--log-format", "text", "--debug", "--max-entries", "5"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port from env, got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key from env, got '%s'", cfg.APIAccessKey)
	}
	if cfg.MaxEntries != 5 {
		t.Errorf("Expected flag to override env, got %d", cfg.MaxEntries)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("Expected log format 'text', got '%s'", cfg.LogFormat)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][]string{
		"zero body size":     {"--max-body-bytes", "0"},
		"negative entries":   {"--max-entries", "-1"},
		"negative queue":     {"--stream-queue-size", "-2"},
		"unknown log format": {"--log-format", "xml"},
	}

	clearEnv(t)

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadArgs(args); err == nil {
				t.Errorf("Expected error for %v", args)
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	clearEnv(t)

	_, err := LoadArgs([]string{"--help"})
	if !errors.Is(err, ErrHelp) {
		t.Errorf("Expected ErrHelp, got: %v", err)
	}
}
