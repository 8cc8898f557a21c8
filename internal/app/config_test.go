package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/shutter/internal/browser"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shutter.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxConcurrentCaptures != 2 || cfg.Browser.Backend != browser.BackendChromedp {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
max_concurrent_captures: 4
browser:
  backend: playwright
  no_sandbox: true
capture:
  load_timeout: 3s
  settle_delay: 500ms
  deny_hosts: ["*.internal"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.MaxConcurrentCaptures != 4 {
		t.Errorf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Browser.Backend != browser.BackendPlaywright || !cfg.Browser.NoSandbox || !cfg.Browser.Headless {
		t.Errorf("unexpected browser config: %+v", cfg.Browser)
	}
	if cfg.Capture.LoadTimeout != 3*time.Second || cfg.Capture.SettleDelay != 500*time.Millisecond {
		t.Errorf("unexpected capture durations: %+v", cfg.Capture)
	}
	if cfg.Capture.NavigateTimeout != 30*time.Second {
		t.Errorf("unset navigate_timeout should keep its default, got %v", cfg.Capture.NavigateTimeout)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ResultRetention != 16 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "max_captures: 3\n",
		"zero bound":      "max_concurrent_captures: 0\n",
		"negative settle": "capture:\n  settle_delay: -1s\n",
		"bad glob":        "capture:\n  allow_hosts: [\"[unclosed\"]\n",
		"bad origin glob": "allowed_origins: [\"http://[unclosed\"]\n",
		"bad duration":    "capture:\n  load_timeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestConfig_StoragePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = ""
	if p, _ := cfg.JournalPath(); p != ":memory:" {
		t.Errorf("expected in-memory journal, got %q", p)
	}
	if p, _ := cfg.ImagesPath(); p != "" {
		t.Errorf("expected no image dir, got %q", p)
	}

	root := t.TempDir()
	cfg.StorageRoot = root
	if p, _ := cfg.JournalPath(); p != filepath.Join(root, "journal.db") {
		t.Errorf("unexpected journal path %q", p)
	}
	if p, _ := cfg.ImagesPath(); p != filepath.Join(root, "images") {
		t.Errorf("unexpected image dir %q", p)
	}
	cfg.PersistImages = false
	if p, _ := cfg.ImagesPath(); p != "" {
		t.Errorf("expected no image dir when disabled, got %q", p)
	}

	cfg.StorageRoot = "~/shots"
	p, err := cfg.JournalPath()
	if err != nil {
		t.Fatalf("JournalPath: %v", err)
	}
	if strings.HasPrefix(p, "~") {
		t.Errorf("home directory not expanded: %q", p)
	}
}
