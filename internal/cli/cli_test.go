package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/cli"
	"github.com/raysh454/shutter/internal/testutil"
)

func TestParseArgs_Defaults(t *testing.T) {
	args, err := cli.ParseArgs([]string{"-url", "example.com"})
	require.NoError(t, err)

	assert.Equal(t, "example.com", args.URL)
	assert.Equal(t, capture.DefaultWidth, args.Width)
	assert.Equal(t, capture.DefaultHeight, args.Height)
	assert.Empty(t, args.Out)
	assert.Equal(t, []string{"-url", "example.com"}, args.RawArgs)
}

func TestParseArgs_AllFlags(t *testing.T) {
	args, err := cli.ParseArgs([]string{
		"-url", "https://example.com", "-width", "1024", "-height", "768",
		"-out", "shot.png", "-backend", "Playwright", "-exec", "/opt/chrome",
		"-load-timeout", "3s", "-settle", "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, capture.Request{URL: "https://example.com", Width: 1024, Height: 768}, args.Request())
	assert.Equal(t, "shot.png", args.Out)

	cfg := app.DefaultConfig()
	args.ApplyOverrides(cfg)
	assert.Equal(t, browser.BackendPlaywright, cfg.Browser.Backend)
	assert.Equal(t, "/opt/chrome", cfg.Browser.ExecPath)
	assert.Equal(t, 3*time.Second, cfg.Capture.LoadTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.SettleDelay)
}

func TestParseArgs_Errors(t *testing.T) {
	cases := map[string][]string{
		"missing url":      {},
		"blank url":        {"-url", "  "},
		"bad width":        {"-url", "x.com", "-width", "wide"},
		"unknown flag":     {"-url", "x.com", "-full-page"},
		"negative timeout": {"-url", "x.com", "-load-timeout", "-1s"},
	}
	for name, argv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cli.ParseArgs(argv)
			assert.Error(t, err)
		})
	}
}

func TestConfig_ReadsFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shutter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capture:\n  settle_delay: 2s\n  load_timeout: 4s\n"), 0o644))

	args, err := cli.ParseArgs([]string{"-url", "x.com", "-config", path, "-settle", "10ms"})
	require.NoError(t, err)

	cfg, err := args.Config()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, cfg.Capture.SettleDelay)
	assert.Equal(t, 4*time.Second, cfg.Capture.LoadTimeout)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	p, err := cli.OutputPath("", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", p)

	p, err = cli.OutputPath(dir, "a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.png"), p)

	p, err = cli.OutputPath(filepath.Join(dir, "custom.png"), "a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.png"), p)

	_, err = cli.OutputPath(filepath.Join(dir, "missing")+string(os.PathSeparator), "a.png")
	assert.Error(t, err)
}

func newOrchestrator(t *testing.T, b browser.Browser) *app.Orchestrator {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.StorageRoot = ""
	cfg.Capture.SettleDelay = 0
	cfg.Capture.LoadTimeout = 50 * time.Millisecond
	o, err := app.NewOrchestratorWithBrowser(cfg, b, nil, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestRun_WritesPNGIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	o := newOrchestrator(t, &testutil.FakeBrowser{})
	args, err := cli.ParseArgs([]string{"-url", "https://example.com", "-width", "640", "-height", "480", "-out", dir})
	require.NoError(t, err)

	var stdout bytes.Buffer
	res, path, err := cli.Run(context.Background(), o, args, &stdout)
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.Regexp(t, regexp.MustCompile(`example_com_\d{8}_\d{6}\.png$`), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Image, data)
	assert.Contains(t, stdout.String(), "(640x480,")
}

func TestRun_StdoutDataURI(t *testing.T) {
	o := newOrchestrator(t, &testutil.FakeBrowser{})
	args, err := cli.ParseArgs([]string{"-url", "https://example.com", "-out", "-"})
	require.NoError(t, err)

	var stdout bytes.Buffer
	_, path, err := cli.Run(context.Background(), o, args, &stdout)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, strings.HasPrefix(stdout.String(), "data:image/png;base64,"))
}

func TestRun_NotesLoadTimeout(t *testing.T) {
	o := newOrchestrator(t, &testutil.FakeBrowser{NeverLoads: true})
	args, err := cli.ParseArgs([]string{"-url", "https://example.com", "-out", t.TempDir()})
	require.NoError(t, err)

	var stdout bytes.Buffer
	res, _, err := cli.Run(context.Background(), o, args, &stdout)
	require.NoError(t, err)
	assert.True(t, res.LoadTimedOut)
	assert.Contains(t, stdout.String(), "load event not observed")
}

func TestRun_Failures(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		o := newOrchestrator(t, nil)
		args, _ := cli.ParseArgs([]string{"-url", "https://example.com"})
		_, _, err := cli.Run(context.Background(), o, args, &bytes.Buffer{})
		assert.True(t, errors.Is(err, capture.ErrBrowserUnavailable))
	})

	t.Run("invalid viewport", func(t *testing.T) {
		o := newOrchestrator(t, &testutil.FakeBrowser{})
		args, _ := cli.ParseArgs([]string{"-url", "https://example.com", "-width", "100"})
		res, _, err := cli.Run(context.Background(), o, args, &bytes.Buffer{})
		assert.True(t, errors.Is(err, capture.ErrInvalidRequest))
		assert.False(t, res.OK())
	})

	t.Run("navigation", func(t *testing.T) {
		o := newOrchestrator(t, &testutil.FakeBrowser{NavigateErr: errors.New("net::ERR_CONNECTION_REFUSED")})
		args, _ := cli.ParseArgs([]string{"-url", "https://example.com", "-out", t.TempDir()})
		_, path, err := cli.Run(context.Background(), o, args, &bytes.Buffer{})
		assert.True(t, errors.Is(err, capture.ErrNavigation))
		assert.Empty(t, path)
	})
}
