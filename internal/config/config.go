// Package config loads Ghostline's runtime configuration from
// environment variables, aggregating validation errors the way the
// teacher broker does.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

const (
	// DefaultStorageDir is where .ghostline files are written when no
	// explicit path is given to a Recorder.
	DefaultStorageDir = "./ghostline-runs"

	// DefaultLogLevel controls verbosity for ghostline logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "ghostline.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for ghostline recording/replay.
type Config struct {
	StorageDir      string
	AuditLogPath    string // empty disables the audit-trail sidecar
	ScrubConfigPath string // empty means built-in default patterns only
	MetricsAddr     string // empty disables the Prometheus HTTP exposition
	Logging         LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads configuration from environment variables, applying sane
// defaults and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		StorageDir:      getString("GHOSTLINE_STORAGE_DIR", DefaultStorageDir),
		AuditLogPath:    strings.TrimSpace(os.Getenv("GHOSTLINE_AUDIT_LOG_PATH")),
		ScrubConfigPath: strings.TrimSpace(os.Getenv("GHOSTLINE_SCRUB_CONFIG_PATH")),
		MetricsAddr:     strings.TrimSpace(os.Getenv("GHOSTLINE_METRICS_ADDR")),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("GHOSTLINE_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("GHOSTLINE_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("GHOSTLINE_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("GHOSTLINE_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GHOSTLINE_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("GHOSTLINE_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GHOSTLINE_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("GHOSTLINE_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GHOSTLINE_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("GHOSTLINE_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if strings.TrimSpace(cfg.StorageDir) == "" {
		problems = append(problems, "GHOSTLINE_STORAGE_DIR must not be blank")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// ScrubRuleFile is the on-disk shape of an optional JWCC (JSON With
// Commas and Comments) scrub-rule override file, parsed with
// tailscale/hujson so operators can annotate their overrides.
type ScrubRuleFile struct {
	Patterns []struct {
		Regex       string `json:"regex"`
		Replacement string `json:"replacement"`
	} `json:"patterns"`
	RedactEmails  bool `json:"redact_emails"`
	CustomStrings []struct {
		Original    string `json:"original"`
		Replacement string `json:"replacement"`
	} `json:"custom_strings"`
}

// LoadScrubRuleFile reads and parses a JWCC scrub-rule override file.
// A blank path is not an error — callers should fall back to built-in
// defaults.
func LoadScrubRuleFile(path string) (*ScrubRuleFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read scrub rule file: %w", err)
	}
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse scrub rule file %s: %w", path, err)
	}
	var parsed ScrubRuleFile
	if err := json.Unmarshal(standardized, &parsed); err != nil {
		return nil, fmt.Errorf("config: decode scrub rule file %s: %w", path, err)
	}
	return &parsed, nil
}
