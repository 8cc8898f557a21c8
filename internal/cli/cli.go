package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/capture"
)

// CLIArgs are the command-line arguments for a single capture.
type CLIArgs struct {
	// URL is the page to capture.
	URL string

	Width  int
	Height int

	// Out is the PNG destination. Empty writes the generated file name into
	// the current directory; a directory writes the generated name there;
	// "-" writes the data URI to stdout.
	Out string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// Backend and ExecPath override the browser config; empty keeps it.
	Backend  string
	ExecPath string

	// LoadTimeout and Settle override capture options; 0 keeps them.
	LoadTimeout time.Duration
	Settle      time.Duration

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("shutter-capture", flag.ContinueOnError)
	var (
		rawURL      = fs.String("url", "", "Page to capture (required)")
		width       = fs.Int("width", capture.DefaultWidth, fmt.Sprintf("Viewport width in CSS pixels (%d-%d)", capture.MinWidth, capture.MaxWidth))
		height      = fs.Int("height", capture.DefaultHeight, fmt.Sprintf("Viewport height in CSS pixels (%d-%d)", capture.MinHeight, capture.MaxHeight))
		out         = fs.String("out", "", `Output file or directory; "-" prints the data URI`)
		configPath  = fs.String("config", "", "YAML config file")
		backend     = fs.String("backend", "", "Browser backend: "+strings.Join(browser.ListBackends(), "|"))
		execPath    = fs.String("exec", "", "Browser executable path")
		loadTimeout = fs.Duration("load-timeout", 0, "Wait this long for the load event (0=use config)")
		settle      = fs.Duration("settle", 0, "Pause before the screenshot (0=use config)")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if strings.TrimSpace(*rawURL) == "" {
		return nil, fmt.Errorf("missing required -url argument")
	}
	if *loadTimeout < 0 || *settle < 0 {
		return nil, fmt.Errorf("durations must not be negative")
	}

	return &CLIArgs{
		URL:         *rawURL,
		Width:       *width,
		Height:      *height,
		Out:         *out,
		ConfigPath:  *configPath,
		Backend:     *backend,
		ExecPath:    *execPath,
		LoadTimeout: *loadTimeout,
		Settle:      *settle,
		RawArgs:     args,
	}, nil
}

// Request builds the capture request.
func (a *CLIArgs) Request() capture.Request {
	return capture.Request{URL: a.URL, Width: a.Width, Height: a.Height}
}

// ApplyOverrides copies flag overrides into cfg.
func (a *CLIArgs) ApplyOverrides(cfg *app.Config) {
	if a.Backend != "" {
		cfg.Browser.Backend = browser.Backend(strings.ToLower(a.Backend))
	}
	if a.ExecPath != "" {
		cfg.Browser.ExecPath = a.ExecPath
	}
	if a.LoadTimeout > 0 {
		cfg.Capture.LoadTimeout = a.LoadTimeout
	}
	if a.Settle > 0 {
		cfg.Capture.SettleDelay = a.Settle
	}
}

// Config loads the config file, if any, and applies the overrides.
func (a *CLIArgs) Config() (*app.Config, error) {
	cfg, err := app.LoadConfig(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.ApplyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run performs the capture with orch and writes the outcome. It returns the
// result together with the path written, if any. A failed capture returns
// the capture error.
func Run(ctx context.Context, orch *app.Orchestrator, args *CLIArgs, stdout io.Writer) (*capture.Result, string, error) {
	if !orch.Status().Available {
		return nil, "", fmt.Errorf("%w: %s", capture.ErrBrowserUnavailable, orch.Status().Message)
	}

	res := orch.Capture(ctx, args.Request())
	if !res.OK() {
		return res, "", res.Err
	}

	if args.Out == "-" {
		_, err := fmt.Fprintln(stdout, res.DataURI())
		return res, "", err
	}

	path, err := OutputPath(args.Out, res.Filename())
	if err != nil {
		return res, "", err
	}
	if err := os.WriteFile(path, res.Image, 0o644); err != nil {
		return res, "", fmt.Errorf("write %s: %w", path, err)
	}
	if res.LoadTimedOut {
		fmt.Fprintln(stdout, "note: load event not observed, captured anyway")
	}
	fmt.Fprintf(stdout, "%s (%dx%d, %s)\n", path, res.ImageWidth, res.ImageHeight, res.Duration().Round(time.Millisecond))
	return res, path, nil
}

// OutputPath resolves out against the generated file name.
func OutputPath(out, filename string) (string, error) {
	if out == "" {
		return filename, nil
	}
	info, err := os.Stat(out)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(out, filename), nil
	case err == nil, errors.Is(err, os.ErrNotExist):
		if strings.HasSuffix(out, string(os.PathSeparator)) {
			return "", fmt.Errorf("output directory %s does not exist", out)
		}
		return out, nil
	default:
		return "", fmt.Errorf("stat %s: %w", out, err)
	}
}
