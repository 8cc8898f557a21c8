package browser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/shutter/internal/logging"
)

// BackendConstructor builds a Browser from config and logger.
type BackendConstructor func(cfg Config, logger logging.Logger) (Browser, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

func init() {
	RegisterDefaultBackends()
}

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Calling RegisterBackend with the same name overwrites the previous
// constructor.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// RegisterDefaultBackends registers the chromedp and playwright backends.
func RegisterDefaultBackends() {
	RegisterBackend(string(BackendChromedp), func(cfg Config, logger logging.Logger) (Browser, error) {
		b, err := NewChromeDPBrowser(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create chromedp browser: %w", err)
		}
		return b, nil
	})
	RegisterBackend(string(BackendPlaywright), func(cfg Config, logger logging.Logger) (Browser, error) {
		b, err := NewPlaywrightBrowser(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create playwright browser: %w", err)
		}
		return b, nil
	})
}

func normalizeBackend(b Backend) Backend {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	if name == "" {
		return BackendChromedp
	}
	return Backend(name)
}

// NewBrowser constructs the configured backend. It returns an error if the
// named backend has not been registered.
func NewBrowser(cfg Config, logger logging.Logger) (Browser, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	backend := normalizeBackend(cfg.Backend)

	mu.RLock()
	ctor, ok := registry[string(backend)]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("browser backend %q not registered: available backends=%v", backend, ListBackends())
	}

	b, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct browser backend %q: %w", backend, err)
	}
	if b == nil {
		return nil, errors.New("browser constructor returned nil")
	}
	logger.Debug("created browser", logging.Field{Key: "backend", Value: string(backend)})
	return b, nil
}

// ListBackends returns the sorted list of registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
