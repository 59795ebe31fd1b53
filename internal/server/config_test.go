package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/growthlab/growth-forecast/pkg/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%q) error = %v", path, err)
		}
		if cfg.Address != constants.DefaultServerAddress {
			t.Errorf("LoadConfig(%q) Address = %q, want %q", path, cfg.Address, constants.DefaultServerAddress)
		}
		if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
			t.Errorf("LoadConfig(%q) UploadSizeBytes() = %d, want %d",
				path, cfg.UploadSizeBytes(), constants.DefaultMaxUploadSizeBytes)
		}
		if cfg.StorePath != "" {
			t.Errorf("LoadConfig(%q) StorePath = %q, want empty", path, cfg.StorePath)
		}
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
address: ":9090"
maxUploadSize: "10M"
storePath: "runs.db"
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != ":9090" {
		t.Errorf("Address = %q, want :9090", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 10*1024*1024 {
		t.Errorf("UploadSizeBytes() = %d, want %d", cfg.UploadSizeBytes(), 10*1024*1024)
	}
	if cfg.StorePath != "runs.db" {
		t.Errorf("StorePath = %q, want runs.db", cfg.StorePath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("maxUploadSize: bogus\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected error for invalid size")
	}
}

func TestLoadConfigUnparseableYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("address: [\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse server config") {
		t.Errorf("LoadConfig() error = %v, want parse failure", err)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", constants.DefaultMaxUploadSizeBytes},
		{"512", 512},
		{"512B", 512},
		{"256K", 256 * 1024},
		{"2KB", 2 * 1024},
		{"10M", 10 * 1024 * 1024},
		{"10MB", 10 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{" 5 M ", 5 * 1024 * 1024},
		{"256k", 256 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.input)
		if err != nil {
			t.Errorf("ParseSize(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, input := range []string{"abc", "10X", "K", "99999999999999999999"} {
		if _, err := ParseSize(input); err == nil {
			t.Errorf("ParseSize(%q) expected error", input)
		}
	}
}

func TestSetUploadSizeBytes(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	cfg.SetUploadSizeBytes(64)
	if cfg.UploadSizeBytes() != 64 {
		t.Errorf("UploadSizeBytes() = %d, want 64", cfg.UploadSizeBytes())
	}

	cfg.SetUploadSizeBytes(0)
	if cfg.UploadSizeBytes() != 64 {
		t.Errorf("UploadSizeBytes() after no-op override = %d, want 64", cfg.UploadSizeBytes())
	}
}
