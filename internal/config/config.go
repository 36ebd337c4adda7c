// Package config provides YAML configuration loading and validation for
// the extraction engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for the extraction
// engine and its CLI.
type Config struct {
	// DevicePath is the raw block device or image file to read. Required.
	DevicePath string `yaml:"device_path"`

	// OutputRoot is the host directory extracted files and the local MFT
	// image are written under. Required. Must already exist; this engine
	// never creates it.
	OutputRoot string `yaml:"output_root"`

	// PartitionIndex selects which NTFS partition to operate on when a
	// device has more than one. Defaults to 0 (the first one found) when
	// omitted.
	PartitionIndex int `yaml:"partition_index"`

	// SocketPath is the Unix-domain socket path the live tap listens on.
	// A leading "@" selects the Linux abstract namespace. Defaults to
	// "@diskTap" when omitted.
	SocketPath string `yaml:"socket_path"`

	// QueueCapacity is loaded and defaults to 1001 when omitted. The live
	// tap does not read it: its ring buffer always has tap.QueueCapacity
	// (1001) slots.
	QueueCapacity int `yaml:"queue_capacity"`

	// MaxExtractFileSize rejects non-resident extractions whose decoded
	// size exceeds it, in bytes. Required, must be positive.
	MaxExtractFileSize int64 `yaml:"max_extract_file_size"`

	// MaxFileModifyAge bounds how old a $STANDARD_INFORMATION modify time
	// may be for the live tap to still consider the write "recent" and
	// worth re-extracting. Required, must be positive.
	MaxFileModifyAge time.Duration `yaml:"max_file_modify_age"`

	// TapIdlePoll is loaded and defaults to 10s when omitted. The tap
	// worker does not read it: it always sleeps a fixed 10s between queue
	// checks once the queue runs dry.
	TapIdlePoll time.Duration `yaml:"tap_idle_poll"`

	// SparseFillPolicy is one of "zero_fill" or "skip", controlling what
	// the extractor writes for a sparse data run. Defaults to "zero_fill"
	// when omitted.
	SparseFillPolicy string `yaml:"sparse_fill_policy"`

	// DeletedPolicy is one of "literal" or "corrected", selecting which
	// reading of the MFT record in-use flag the catalogue builder treats
	// as "deleted". Defaults to "corrected" when omitted.
	DeletedPolicy string `yaml:"deleted_policy"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`
}

var validSparsePolicies = map[string]bool{
	"zero_fill": true,
	"skip":      true,
}

var validDeletedPolicies = map[string]bool{
	"literal":   true,
	"corrected": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all required fields. It returns a joined
// error describing every validation failure encountered, not just the
// first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "@diskTap"
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 1001
	}
	if cfg.TapIdlePoll == 0 {
		cfg.TapIdlePoll = 10 * time.Second
	}
	if cfg.SparseFillPolicy == "" {
		cfg.SparseFillPolicy = "zero_fill"
	}
	if cfg.DeletedPolicy == "" {
		cfg.DeletedPolicy = "corrected"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.DevicePath == "" {
		errs = append(errs, errors.New("device_path is required"))
	}
	if cfg.OutputRoot == "" {
		errs = append(errs, errors.New("output_root is required"))
	}
	if cfg.PartitionIndex < 0 {
		errs = append(errs, errors.New("partition_index must be >= 0"))
	}
	if cfg.MaxExtractFileSize <= 0 {
		errs = append(errs, errors.New("max_extract_file_size must be positive"))
	}
	if cfg.MaxFileModifyAge <= 0 {
		errs = append(errs, errors.New("max_file_modify_age must be positive"))
	}
	if !validSparsePolicies[cfg.SparseFillPolicy] {
		errs = append(errs, fmt.Errorf("sparse_fill_policy %q must be one of: zero_fill, skip", cfg.SparseFillPolicy))
	}
	if !validDeletedPolicies[cfg.DeletedPolicy] {
		errs = append(errs, fmt.Errorf("deleted_policy %q must be one of: literal, corrected", cfg.DeletedPolicy))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
