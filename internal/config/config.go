package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "*/15 * * * *"
	defaultDayWidth    = 24
	defaultICSWindow   = 90
	defaultRateLimit   = 60
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// CSVConfig describes a CSV item source and which columns hold the fields.
// Column names are matched case-insensitively.
type CSVConfig struct {
	Path        string `yaml:"path" json:"path"`
	IDColumn    string `yaml:"id_column" json:"id_column"`
	NameColumn  string `yaml:"name_column" json:"name_column"`
	StartColumn string `yaml:"start_column" json:"start_column"`
	EndColumn   string `yaml:"end_column" json:"end_column"`
}

// StyleConfig controls the SVG output.
type StyleConfig struct {
	FontFamily string `yaml:"font_family" json:"font_family"`
	FontSize   int    `yaml:"font_size" json:"font_size"`
	Background string `yaml:"background" json:"background"`
	HeaderFill string `yaml:"header_fill" json:"header_fill"`
	ItemFill   string `yaml:"item_fill" json:"item_fill"`
	ItemText   string `yaml:"item_text" json:"item_text"`
	TodayFill  string `yaml:"today_fill" json:"today_fill"`
	LaneHeight int    `yaml:"lane_height" json:"lane_height"`
}

// CaptureConfig controls the PNG snapshot of the rendered timeline.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Width   int  `yaml:"width" json:"width"`
	Height  int  `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// reloading all sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DayWidth is the pixel width of one day column.
	DayWidth int `yaml:"day_width" json:"day_width"`

	// CacheDir holds the ICS HTTP cache and the PNG preview.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Items lists YAML or JSON item files.
	Items []string `yaml:"items" json:"items"`

	// CSV lists CSV item sources.
	CSV []CSVConfig `yaml:"csv" json:"csv"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Timezone is the IANA zone whose wall-clock date decides which day a
	// timed ICS event falls on. All-day events ignore it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// ICSWindowDays bounds recurrence expansion to this many days on either
	// side of now.
	ICSWindowDays int `yaml:"ics_window_days" json:"ics_window_days"`

	Style   StyleConfig   `yaml:"style" json:"style"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// RateLimitPerMin limits mutating API calls per client.
	RateLimitPerMin int `yaml:"rate_limit_per_min" json:"rate_limit_per_min"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Items: []string{"./items.yaml"},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.DayWidth <= 0 {
		c.DayWidth = defaultDayWidth
	}
	if c.CacheDir == "" {
		c.CacheDir = "./cache"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.ICSWindowDays <= 0 {
		c.ICSWindowDays = defaultICSWindow
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = defaultRateLimit
	}
	if c.Items == nil {
		c.Items = []string{}
	}
	if c.CSV == nil {
		c.CSV = []CSVConfig{}
	}
	for i := range c.CSV {
		col := &c.CSV[i]
		if col.IDColumn == "" {
			col.IDColumn = "id"
		}
		if col.NameColumn == "" {
			col.NameColumn = "name"
		}
		if col.StartColumn == "" {
			col.StartColumn = "start"
		}
		if col.EndColumn == "" {
			col.EndColumn = "end"
		}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}

	s := &c.Style
	if s.FontFamily == "" {
		s.FontFamily = "Arial, sans-serif"
	}
	if s.FontSize <= 0 {
		s.FontSize = 12
	}
	if s.Background == "" {
		s.Background = "#f1f5f9"
	}
	if s.HeaderFill == "" {
		s.HeaderFill = "#f3f4f6"
	}
	if s.ItemFill == "" {
		s.ItemFill = "#6366f1"
	}
	if s.ItemText == "" {
		s.ItemText = "#ffffff"
	}
	if s.TodayFill == "" {
		s.TodayFill = "#e0e7ff"
	}
	if s.LaneHeight <= 0 {
		s.LaneHeight = 48
	}

	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 720
	}
}

// FilePaths returns every local file the configured sources read from.
func (c *Config) FilePaths() []string {
	paths := make([]string, 0, len(c.Items)+len(c.CSV))
	paths = append(paths, c.Items...)
	for _, s := range c.CSV {
		paths = append(paths, s.Path)
	}
	return paths
}

// PreviewPath is where the captured PNG preview is written.
func (c *Config) PreviewPath() string {
	return filepath.Join(c.CacheDir, "preview.png")
}

// ICSCacheDir holds the ICS HTTP cache.
func (c *Config) ICSCacheDir() string {
	return filepath.Join(c.CacheDir, "ics")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".timelane-config-*.tmp")
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

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
