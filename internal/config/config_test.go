package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/shubham030/ntfstap/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	return f.Name()
}

const validYAML = `
device_path: "/dev/sdb"
output_root: "/var/lib/ntfstap"
max_extract_file_size: 104857600
max_file_modify_age: 5m
log_level: debug
`

func TestLoadValid(t *testing.T) {
	path := writeTemp(t, validYAML)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DevicePath != "/dev/sdb" {
		t.Errorf("DevicePath = %q", cfg.DevicePath)
	}
	if cfg.OutputRoot != "/var/lib/ntfstap" {
		t.Errorf("OutputRoot = %q", cfg.OutputRoot)
	}
	if cfg.MaxExtractFileSize != 104857600 {
		t.Errorf("MaxExtractFileSize = %d", cfg.MaxExtractFileSize)
	}
	if cfg.MaxFileModifyAge != 5*time.Minute {
		t.Errorf("MaxFileModifyAge = %v, want 5m", cfg.MaxFileModifyAge)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// defaults
	if cfg.SocketPath != "@diskTap" {
		t.Errorf("SocketPath default = %q, want @diskTap", cfg.SocketPath)
	}
	if cfg.QueueCapacity != 1001 {
		t.Errorf("QueueCapacity default = %d, want 1001", cfg.QueueCapacity)
	}
	if cfg.TapIdlePoll != 10*time.Second {
		t.Errorf("TapIdlePoll default = %v, want 10s", cfg.TapIdlePoll)
	}
	if cfg.SparseFillPolicy != "zero_fill" {
		t.Errorf("SparseFillPolicy default = %q, want zero_fill", cfg.SparseFillPolicy)
	}
	if cfg.DeletedPolicy != "corrected" {
		t.Errorf("DeletedPolicy default = %q, want corrected", cfg.DeletedPolicy)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	path := writeTemp(t, "log_level: info\n")
	if _, err := config.Load(path); err == nil {
		t.Error("expected validation error for missing device_path/output_root/max_extract_file_size/max_file_modify_age")
	}
}

func TestLoadRejectsUnknownSparsePolicy(t *testing.T) {
	path := writeTemp(t, validYAML+"\nsparse_fill_policy: explode\n")
	if _, err := config.Load(path); err == nil {
		t.Error("expected validation error for unknown sparse_fill_policy")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/path.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
