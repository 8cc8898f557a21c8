package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/shutter/internal/logging"
)

// ChromeDPBrowser drives Chrome through chromedp. One browser process is
// shared; each session gets its own browser context and tab. If the process
// dies it is relaunched on the next NewSession.
type ChromeDPBrowser struct {
	cfg    Config
	logger logging.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closed        bool

	active atomic.Int32
}

// NewChromeDPBrowser prepares the allocator. The browser itself starts lazily
// on the first session.
func NewChromeDPBrowser(cfg Config, logger logging.Logger) (*ChromeDPBrowser, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	b := &ChromeDPBrowser{cfg: cfg, logger: logger}

	if cfg.RemoteURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return b, nil
	}

	execPath, err := Locate(cfg.ExecPath)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.DisableGPU,
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.logger.Debug("chromedp allocator ready", logging.Field{Key: "exec_path", Value: execPath})
	return b, nil
}

// ensureBrowser returns a live browser context, starting (or restarting) the
// browser process when needed.
func (b *ChromeDPBrowser) ensureBrowser(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}
	if b.browserCtx != nil {
		b.logger.Warn("browser process gone, relaunching")
	}

	browserCtx, cancel := chromedp.NewContext(b.allocCtx)
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("start browser: %w", ctx.Err())
		}
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b.browserCtx, b.browserCancel = browserCtx, cancel
	b.logger.Info("browser started")
	return browserCtx, nil
}

func (b *ChromeDPBrowser) NewSession(ctx context.Context) (Session, error) {
	browserCtx, err := b.ensureBrowser(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())
	// The first Run allocates the tab and binds its lifetime to tabCtx, so it
	// must run on tabCtx itself; ctx only gets to abort the allocation.
	stop := context.AfterFunc(ctx, cancel)
	err = chromedp.Run(tabCtx)
	stop()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("open tab: %w", ctx.Err())
		}
		return nil, fmt.Errorf("open tab: %w", err)
	}

	b.active.Add(1)
	return &chromedpSession{tabCtx: tabCtx, cancel: cancel, owner: b}, nil
}

func (b *ChromeDPBrowser) ActiveSessions() int {
	return int(b.active.Load())
}

func (b *ChromeDPBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.browserCtx != nil {
		err = chromedp.Cancel(b.browserCtx)
		b.browserCancel()
	}
	b.allocCancel()
	return err
}

type chromedpSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	owner  *ChromeDPBrowser

	mu     sync.Mutex
	loaded chan struct{}
	closed bool
}

// bind derives a context from the tab that also stops when ctx does.
func (s *chromedpSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if dl, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.tabCtx, dl)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// wrap prefers the caller's context error so errors.Is works on timeouts.
func (s *chromedpSession) wrap(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if s.tabCtx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type navigateResult struct {
	FrameID   string `json:"frameId"`
	LoaderID  string `json:"loaderId"`
	ErrorText string `json:"errorText"`
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	loaded := make(chan struct{})
	var once sync.Once
	chromedp.ListenTarget(s.tabCtx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			once.Do(func() { close(loaded) })
		}
	})
	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()

	runCtx, done := s.bind(ctx)
	defer done()

	var res navigateResult
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.FromContext(ctx).Target.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res)
	}))
	if err != nil {
		return s.wrap(ctx, "page.navigate", err)
	}
	if res.ErrorText != "" {
		return fmt.Errorf("page.navigate: %s", res.ErrorText)
	}
	return nil
}

func (s *chromedpSession) WaitLoad(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded == nil {
		return ErrNotNavigated
	}

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for load: %w", ctx.Err())
	case <-s.tabCtx.Done():
		return fmt.Errorf("wait for load: %w", ErrSessionClosed)
	}
}

func (s *chromedpSession) SetViewport(ctx context.Context, vp Viewport) error {
	runCtx, done := s.bind(ctx)
	defer done()

	err := chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), 1, false),
	)
	if err != nil {
		return s.wrap(ctx, "set device metrics", err)
	}
	return nil
}

func (s *chromedpSession) Capture(ctx context.Context) ([]byte, error) {
	runCtx, done := s.bind(ctx)
	defer done()

	var buf []byte
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, s.wrap(ctx, "capture screenshot", err)
	}
	return buf, nil
}

func (s *chromedpSession) Document(ctx context.Context) (Document, error) {
	runCtx, done := s.bind(ctx)
	defer done()

	var doc Document
	err := chromedp.Run(runCtx,
		chromedp.Location(&doc.URL),
		chromedp.OuterHTML("html", &doc.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return Document{}, s.wrap(ctx, "read document", err)
	}
	return doc, nil
}

func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.owner.active.Add(-1)

	err := chromedp.Cancel(s.tabCtx)
	s.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}
