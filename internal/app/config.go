package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/capture"
)

// Config is the runtime configuration shared by every entry point. Zero
// values in a YAML file keep the defaults.
type Config struct {
	// ListenAddr is the HTTP listen address of the web UI and API.
	ListenAddr string `yaml:"listen_addr"`

	// AllowedOrigins lists extra browser origins (glob patterns such as
	// "http://localhost:*") that may call the API. Same-origin requests are
	// always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// StorageRoot holds the capture journal. Empty keeps the journal in
	// memory.
	StorageRoot string `yaml:"storage_root"`

	// PersistImages keeps successful PNGs under StorageRoot/images so history
	// entries stay downloadable after they leave the in-memory store.
	PersistImages bool `yaml:"persist_images"`

	LogLevel string `yaml:"log_level"`

	// MaxConcurrentCaptures bounds captures running at once; each holds its
	// own browser session.
	MaxConcurrentCaptures int64 `yaml:"max_concurrent_captures"`

	// ResultRetention is how many recent results stay downloadable.
	ResultRetention int `yaml:"result_retention"`

	// JobRetentionTime is how long finished jobs remain queryable.
	JobRetentionTime time.Duration `yaml:"job_retention_time"`

	Browser browser.Config  `yaml:"browser"`
	Capture capture.Options `yaml:"capture"`
}

// DefaultConfig returns a Config populated with local defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:            "127.0.0.1:8080",
		StorageRoot:           "~/.config/shutter",
		PersistImages:         true,
		LogLevel:              "info",
		MaxConcurrentCaptures: 2,
		ResultRetention:       16,
		JobRetentionTime:      15 * time.Minute,
		Browser:               browser.DefaultConfig(),
		Capture:               capture.DefaultOptions(),
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.MaxConcurrentCaptures < 1 {
		return fmt.Errorf("max_concurrent_captures must be at least 1, got %d", c.MaxConcurrentCaptures)
	}
	if c.ResultRetention < 1 {
		return fmt.Errorf("result_retention must be at least 1, got %d", c.ResultRetention)
	}
	if c.Capture.NavigateTimeout <= 0 || c.Capture.LoadTimeout <= 0 || c.Capture.CaptureTimeout <= 0 {
		return errors.New("capture timeouts must be positive")
	}
	if c.Capture.SettleDelay < 0 {
		return errors.New("capture settle_delay must not be negative")
	}
	if _, err := capture.NewScope(c.Capture.AllowHosts, c.Capture.DenyHosts); err != nil {
		return err
	}
	for _, p := range c.AllowedOrigins {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("allowed_origins pattern %q: %w", p, err)
		}
	}
	return nil
}

// JournalPath is where the SQLite journal lives, or ":memory:".
func (c *Config) JournalPath() (string, error) {
	if c.StorageRoot == "" {
		return ":memory:", nil
	}
	root, err := expandPath(c.StorageRoot)
	if err != nil {
		return "", fmt.Errorf("expanding storage root path: %w", err)
	}
	return filepath.Join(root, "journal.db"), nil
}

// ImagesPath is the image store directory, or "" when images are not kept.
func (c *Config) ImagesPath() (string, error) {
	if c.StorageRoot == "" || !c.PersistImages {
		return "", nil
	}
	root, err := expandPath(c.StorageRoot)
	if err != nil {
		return "", fmt.Errorf("expanding storage root path: %w", err)
	}
	return filepath.Join(root, "images"), nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
