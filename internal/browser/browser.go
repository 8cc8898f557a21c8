// Package browser hands out isolated browser sessions for screenshot capture.
//
// A Browser owns the (possibly shared) browser process; every Session is a
// fresh isolated browsing context with a single page that is thrown away when
// the capture that acquired it ends.
package browser

import (
	"context"
	"errors"
)

var (
	ErrNoExecutable  = errors.New("no compatible browser executable found")
	ErrClosed        = errors.New("browser closed")
	ErrSessionClosed = errors.New("session closed")
	ErrNotNavigated  = errors.New("no navigation in progress")
)

// Viewport is the emulated window size in CSS pixels. Scale factor is
// always 1 and mobile emulation is always off.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Document is what a session reports about the page it rendered.
type Document struct {
	URL  string
	HTML string
}

// Browser acquires per-capture sessions.
type Browser interface {
	// NewSession opens a fresh isolated context and page.
	NewSession(ctx context.Context) (Session, error)

	// ActiveSessions reports how many sessions have been opened and not yet closed.
	ActiveSessions() int

	Close() error
}

// Session is a single page inside its own browsing context. Every method
// honors ctx; the caller bounds each step with its own deadline.
type Session interface {
	// Navigate starts loading url and returns once the navigation has been
	// committed. It does not wait for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitLoad blocks until the page fires its load event, ctx expires or the
	// session dies. On ctx expiry the returned error wraps ctx.Err().
	WaitLoad(ctx context.Context) error

	SetViewport(ctx context.Context, vp Viewport) error

	// Capture returns the rendered viewport as PNG bytes.
	Capture(ctx context.Context) ([]byte, error)

	Document(ctx context.Context) (Document, error)

	// Close releases the context. Safe to call more than once.
	Close() error
}
