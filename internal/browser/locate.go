package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variables consulted, in order, before the well-known paths.
var execPathEnv = []string{"SHUTTER_CHROME_PATH", "CHROME_PATH"}

var execNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

func knownExecPaths(goos string, getenv func(string) string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			filepath.Join(getenv("ProgramFiles"), "Google/Chrome/Application/chrome.exe"),
			filepath.Join(getenv("ProgramFiles(x86)"), "Google/Chrome/Application/chrome.exe"),
			filepath.Join(getenv("LocalAppData"), "Google/Chrome/Application/chrome.exe"),
		}
	default:
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/headless-shell/headless-shell",
		}
	}
}

type locator struct {
	goos     string
	getenv   func(string) string
	lookPath func(string) (string, error)
	isFile   func(string) bool
}

func defaultLocator() locator {
	return locator{
		goos:     runtime.GOOS,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		isFile: func(p string) bool {
			info, err := os.Stat(p)
			return err == nil && !info.IsDir()
		},
	}
}

// Locate finds a Chrome/Chromium executable. requested wins when it points
// at a file; then the environment, the platform's usual install locations
// and finally $PATH are tried.
func Locate(requested string) (string, error) {
	return defaultLocator().locate(requested)
}

func (l locator) locate(requested string) (string, error) {
	var tried []string

	candidates := make([]string, 0, 8)
	if p := strings.TrimSpace(requested); p != "" {
		candidates = append(candidates, p)
	}
	for _, key := range execPathEnv {
		if p := strings.TrimSpace(l.getenv(key)); p != "" {
			candidates = append(candidates, p)
		}
	}
	candidates = append(candidates, knownExecPaths(l.goos, l.getenv)...)

	for _, c := range candidates {
		if l.isFile(c) {
			return c, nil
		}
		tried = append(tried, c)
	}

	for _, name := range execNames {
		if p, err := l.lookPath(name); err == nil {
			return p, nil
		}
		tried = append(tried, name)
	}

	return "", fmt.Errorf("%w; tried %s", ErrNoExecutable, strings.Join(tried, ", "))
}

// Availability is computed once at startup and reported to users before any
// capture is attempted.
type Availability struct {
	Available bool    `json:"available"`
	Backend   Backend `json:"backend"`
	ExecPath  string  `json:"exec_path,omitempty"`
	Message   string  `json:"message"`
}

// Probe checks the preconditions a backend needs without launching anything.
// Only the local chromedp backend needs an executable on the host; remote
// endpoints and playwright are checked when the backend is constructed.
func Probe(cfg Config) Availability {
	backend := normalizeBackend(cfg.Backend)
	a := Availability{Backend: backend}

	if backend != BackendChromedp || cfg.RemoteURL != "" {
		a.Available = true
		a.Message = fmt.Sprintf("%s backend configured", backend)
		return a
	}

	path, err := Locate(cfg.ExecPath)
	if err != nil {
		a.Message = "Browser unavailable: " + err.Error()
		return a
	}
	a.Available = true
	a.ExecPath = path
	a.Message = "Browser ready: " + path
	return a
}
