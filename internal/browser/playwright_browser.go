package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/raysh454/shutter/internal/logging"
)

// PlaywrightBrowser drives Chromium through playwright-go. Each session is
// a new BrowserContext with one Page.
//
// Playwright calls are not context-aware; deadlines are translated into
// playwright timeouts and ctx is checked before every call.
type PlaywrightBrowser struct {
	logger logging.Logger

	pw      *playwright.Playwright
	browser playwright.Browser

	mu     sync.Mutex
	closed bool

	active atomic.Int32
}

// NewPlaywrightBrowser starts the playwright driver and launches Chromium.
func NewPlaywrightBrowser(cfg Config, logger logging.Logger) (*PlaywrightBrowser, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if cfg.InstallDriver {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.ExecPath != "" {
		launch.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	if cfg.NoSandbox {
		launch.ChromiumSandbox = playwright.Bool(false)
	}

	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	logger.Debug("playwright chromium launched", logging.Field{Key: "version", Value: b.Version()})
	return &PlaywrightBrowser{logger: logger, pw: pw, browser: b}, nil
}

func (b *PlaywrightBrowser) NewSession(ctx context.Context) (Session, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}

	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		DeviceScaleFactor: playwright.Float(1),
		IsMobile:          playwright.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	p, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	b.active.Add(1)
	return &playwrightSession{bctx: bctx, page: p, owner: b}, nil
}

func (b *PlaywrightBrowser) ActiveSessions() int {
	return int(b.active.Load())
}

func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.browser.Close()
	if stopErr := b.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}

type playwrightSession struct {
	bctx  playwright.BrowserContext
	page  playwright.Page
	owner *PlaywrightBrowser

	mu        sync.Mutex
	navigated bool
	closed    bool
}

// timeoutMs converts ctx's deadline into a playwright timeout. nil keeps
// playwright's default.
func timeoutMs(ctx context.Context) *float64 {
	dl, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(dl).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// mapErr turns playwright timeouts into context.DeadlineExceeded so callers
// can treat both backends alike.
func mapErr(op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %v", op, context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("goto: %w", err)
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
		Timeout:   timeoutMs(ctx),
	})
	if err != nil {
		return mapErr("goto", err)
	}
	s.mu.Lock()
	s.navigated = true
	s.mu.Unlock()
	return nil
}

func (s *playwrightSession) WaitLoad(ctx context.Context) error {
	s.mu.Lock()
	navigated := s.navigated
	s.mu.Unlock()
	if !navigated {
		return ErrNotNavigated
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: timeoutMs(ctx),
	})
	if err != nil {
		return mapErr("wait for load", err)
	}
	return nil
}

func (s *playwrightSession) SetViewport(ctx context.Context, vp Viewport) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := s.page.SetViewportSize(vp.Width, vp.Height); err != nil {
		return mapErr("set viewport", err)
	}
	return nil
}

func (s *playwrightSession) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	buf, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: timeoutMs(ctx),
	})
	if err != nil {
		return nil, mapErr("screenshot", err)
	}
	return buf, nil
}

func (s *playwrightSession) Document(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	html, err := s.page.Content()
	if err != nil {
		return Document{}, mapErr("read document", err)
	}
	return Document{URL: s.page.URL(), HTML: html}, nil
}

func (s *playwrightSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.owner.active.Add(-1)

	if err := s.bctx.Close(); err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	return nil
}
