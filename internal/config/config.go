package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

var (
	ErrMissingWorkbook   = errors.New("workbook is required")
	ErrInvalidSheetIndex = errors.New("schedule_sheet and cast_sheet must be non-negative")
	ErrSameSheet         = errors.New("schedule_sheet and cast_sheet must differ")
	ErrMissingOutDir     = errors.New("out_dir is required")
	ErrInvalidMarks      = errors.New("marks.performs and marks.silent_play must be single, distinct characters")
	ErrInvalidTimezone   = errors.New("timezone must be a valid IANA zone name")
	ErrInvalidDuration   = errors.New("default_duration_minutes must be at least 1")
	ErrInvalidRefresh    = errors.New("refresh must be a standard 5-field cron spec")
	ErrInvalidLogLevel   = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat  = errors.New("log_format must be 'text' or 'json'")
)

const (
	defaultWorkbook        = "rehearsals.xlsx"
	defaultOutDir          = "./calendars"
	defaultTimezone        = "Europe/Zurich"
	defaultDurationMinutes = 240
	defaultTitle           = "Theater"
	defaultProductID       = "-//EnsembLee//NONSGML Scene Scheduler//DE"
	defaultCacheDir        = "./var/workbook-cache"
	defaultListen          = "127.0.0.1:8080"
	defaultRefresh         = "*/15 * * * *"
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// MarksConfig holds the cast sheet participation marks.
type MarksConfig struct {
	Performs   string `yaml:"performs" json:"performs"`
	SilentPlay string `yaml:"silent_play" json:"silent_play"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the calendar server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Workbook is a local .xlsx path or an http(s) URL.
	Workbook string `yaml:"workbook" json:"workbook"`

	// ScheduleSheet and CastSheet are zero-based sheet indices.
	ScheduleSheet int `yaml:"schedule_sheet" json:"schedule_sheet"`
	CastSheet     int `yaml:"cast_sheet" json:"cast_sheet"`

	// OutDir receives one <person>.ics per cast member.
	OutDir string `yaml:"out_dir" json:"out_dir"`

	// Timezone is the IANA zone all schedule dates and times are read in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultDurationMinutes closes occasions that have no stop time.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`

	EventTitle string      `yaml:"event_title" json:"event_title"`
	ProductID  string      `yaml:"product_id" json:"product_id"`
	Marks      MarksConfig `yaml:"marks" json:"marks"`

	// CacheDir stores downloaded remote workbooks.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic regeneration in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workbook:               defaultWorkbook,
		ScheduleSheet:          0,
		CastSheet:              1,
		OutDir:                 defaultOutDir,
		Timezone:               defaultTimezone,
		DefaultDurationMinutes: defaultDurationMinutes,
		EventTitle:             defaultTitle,
		ProductID:              defaultProductID,
		Marks:                  MarksConfig{Performs: "x", SilentPlay: "-"},
		CacheDir:               defaultCacheDir,
		Listen:                 defaultListen,
		RefreshCron:            defaultRefresh,
		LogLevel:               defaultLogLevel,
		LogFormat:              defaultLogFormat,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.OutDir == "" {
		c.OutDir = defaultOutDir
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultDurationMinutes == 0 {
		c.DefaultDurationMinutes = defaultDurationMinutes
	}
	if c.EventTitle == "" {
		c.EventTitle = defaultTitle
	}
	if c.ProductID == "" {
		c.ProductID = defaultProductID
	}
	if c.Marks.Performs == "" {
		c.Marks.Performs = "x"
	}
	if c.Marks.SilentPlay == "" {
		c.Marks.SilentPlay = "-"
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	// Empty credentials disable auth.
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Validate checks the normalized configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workbook) == "" {
		return ErrMissingWorkbook
	}
	if c.ScheduleSheet < 0 || c.CastSheet < 0 {
		return ErrInvalidSheetIndex
	}
	if c.ScheduleSheet == c.CastSheet {
		return fmt.Errorf("%w: both are %d", ErrSameSheet, c.CastSheet)
	}
	if c.OutDir == "" {
		return ErrMissingOutDir
	}
	if utf8.RuneCountInString(c.Marks.Performs) != 1 ||
		utf8.RuneCountInString(c.Marks.SilentPlay) != 1 ||
		strings.EqualFold(c.Marks.Performs, c.Marks.SilentPlay) {
		return fmt.Errorf("%w: got %q and %q", ErrInvalidMarks, c.Marks.Performs, c.Marks.SilentPlay)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}
	if c.DefaultDurationMinutes < 1 {
		return ErrInvalidDuration
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRefresh, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DefaultDuration is DefaultDurationMinutes as a time.Duration.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML over the defaults
//   - normalize
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Keys absent from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".rehearsalcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
