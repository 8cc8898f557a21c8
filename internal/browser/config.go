package browser

type Backend string

const (
	BackendChromedp   Backend = "chromedp"
	BackendPlaywright Backend = "playwright"
)

// Config controls how the browser is found and launched.
type Config struct {
	// Backend names a registered backend; empty means chromedp.
	Backend Backend `yaml:"backend"`

	// ExecPath overrides executable discovery.
	ExecPath string `yaml:"exec_path"`

	// RemoteURL points the chromedp backend at an already running browser's
	// DevTools endpoint (ws:// or http://host:9222) instead of launching one.
	RemoteURL string `yaml:"remote_url"`

	Headless  bool `yaml:"headless"`
	NoSandbox bool `yaml:"no_sandbox"`

	// InstallDriver lets the playwright backend download its driver and
	// browsers on first start.
	InstallDriver bool `yaml:"install_driver"`
}

// DefaultConfig returns a headless chromedp configuration.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendChromedp,
		Headless: true,
	}
}
