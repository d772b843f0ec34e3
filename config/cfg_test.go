package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if !cfg.Document.NativeLists {
		t.Error("Expected native lists by default")
	}
	if cfg.Document.Reconcile.WarnAfter.Value() != 50*time.Millisecond {
		t.Errorf("Reconcile warn_after = %v, want 50ms", cfg.Document.Reconcile.WarnAfter)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
document:
  tokens_path: /tmp/tokens.yaml
  output_name_template: "{{.Name}}"
  native_lists: false
  reconcile:
    warn_after: 100ms
    warn_elements: 5000
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Document.TokensPath != "/tmp/tokens.yaml" {
		t.Errorf("TokensPath = %q", cfg.Document.TokensPath)
	}
	if cfg.Document.NativeLists {
		t.Error("Expected native lists to be disabled")
	}
	if cfg.Document.Reconcile.WarnAfter.Value() != 100*time.Millisecond {
		t.Errorf("Reconcile warn_after = %v, want 100ms", cfg.Document.Reconcile.WarnAfter)
	}
	if cfg.Document.Reconcile.WarnElements != 5000 {
		t.Errorf("Reconcile warn_elements = %d, want 5000", cfg.Document.Reconcile.WarnElements)
	}
	if cfg.Logging.FileLogger.Level != "debug" {
		t.Errorf("File log level = %q, want debug", cfg.Logging.FileLogger.Level)
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bad version",
			content: "version: 2\n",
			want:    "unsupported configuration version",
		},
		{
			name: "bad log level",
			content: `version: 1
logging:
  console:
    level: verbose
`,
			want: "unsupported log level",
		},
		{
			name: "file log without destination",
			content: `version: 1
logging:
  file:
    level: debug
`,
			want: "without destination",
		},
		{
			name: "negative reconcile threshold",
			content: `version: 1
document:
  reconcile:
    warn_after: -1s
`,
			want: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfiguration(configPath)
			if err == nil {
				t.Fatal("LoadConfiguration() accepted invalid configuration")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCleanFileName(t *testing.T) {
	if got := CleanFileName("a" + string(os.PathSeparator) + "b"); strings.ContainsRune(got, os.PathSeparator) {
		t.Errorf("CleanFileName kept path separator: %q", got)
	}
	if got := CleanFileName(""); got == "" {
		t.Error("CleanFileName returned empty name")
	}
}
