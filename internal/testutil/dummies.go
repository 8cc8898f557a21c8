// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without a real browser.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount is safe to call while other goroutines log.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── Images ────────────────────────────────────────────────────────────

// PNG encodes a blank w x h image.
func PNG(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(fmt.Sprintf("encode png: %v", err))
	}
	return buf.Bytes()
}

// ─── Browser ───────────────────────────────────────────────────────────

// FakeBrowser implements browser.Browser. By default every session loads
// instantly and captures a PNG of the viewport size.
type FakeBrowser struct {
	// SessionErr fails NewSession.
	SessionErr error
	// NavigateErr fails Navigate.
	NavigateErr error
	// NeverLoads makes WaitLoad block until its context expires.
	NeverLoads bool
	// WaitLoadErr fails WaitLoad immediately.
	WaitLoadErr error
	ViewportErr error
	CaptureErr  error
	// CaptureBytes replaces the generated PNG when non-nil.
	CaptureBytes []byte
	// BlockCapture makes Capture wait for ctx to end.
	BlockCapture bool
	HTML         string
	DocumentErr  error
	CloseErr     error

	mu       sync.Mutex
	active   int
	opened   int
	maxSeen  int
	closed   bool
	Visited  []string
	Viewport []browser.Viewport
}

func (b *FakeBrowser) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, browser.ErrClosed
	}
	if b.SessionErr != nil {
		return nil, b.SessionErr
	}
	b.active++
	b.opened++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	return &FakeSession{b: b}, nil
}

func (b *FakeBrowser) ActiveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Opened is the total number of sessions ever opened.
func (b *FakeBrowser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// MaxConcurrent is the highest number of simultaneously open sessions seen.
func (b *FakeBrowser) MaxConcurrent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxSeen
}

func (b *FakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// FakeSession implements browser.Session for FakeBrowser.
type FakeSession struct {
	b         *FakeBrowser
	url       string
	vp        browser.Viewport
	navigated bool
	closed    bool
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.b.mu.Lock()
	s.b.Visited = append(s.b.Visited, url)
	s.b.mu.Unlock()
	if s.b.NavigateErr != nil {
		return s.b.NavigateErr
	}
	s.url = url
	s.navigated = true
	return nil
}

func (s *FakeSession) WaitLoad(ctx context.Context) error {
	if !s.navigated {
		return browser.ErrNotNavigated
	}
	if s.b.WaitLoadErr != nil {
		return s.b.WaitLoadErr
	}
	if s.b.NeverLoads {
		<-ctx.Done()
		return fmt.Errorf("wait for load: %w", ctx.Err())
	}
	return ctx.Err()
}

func (s *FakeSession) SetViewport(ctx context.Context, vp browser.Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.b.ViewportErr != nil {
		return s.b.ViewportErr
	}
	s.vp = vp
	s.b.mu.Lock()
	s.b.Viewport = append(s.b.Viewport, vp)
	s.b.mu.Unlock()
	return nil
}

func (s *FakeSession) Capture(ctx context.Context) ([]byte, error) {
	if s.b.BlockCapture {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.b.CaptureErr != nil {
		return nil, s.b.CaptureErr
	}
	if s.b.CaptureBytes != nil {
		return s.b.CaptureBytes, nil
	}
	w, h := s.vp.Width, s.vp.Height
	if w == 0 || h == 0 {
		w, h = 800, 600
	}
	return PNG(w, h), nil
}

func (s *FakeSession) Document(ctx context.Context) (browser.Document, error) {
	if s.b.DocumentErr != nil {
		return browser.Document{}, s.b.DocumentErr
	}
	html := s.b.HTML
	if html == "" {
		html = "<html><head><title>Fake Page</title></head><body></body></html>"
	}
	return browser.Document{URL: s.url, HTML: html}, nil
}

func (s *FakeSession) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.b.active--
	return s.b.CloseErr
}
