package capture

import (
	"context"
	"errors"
)

var (
	// ErrBrowserUnavailable means no compatible browser was found at startup.
	ErrBrowserUnavailable = errors.New("browser unavailable")
	ErrInvalidRequest     = errors.New("invalid capture request")
	ErrTargetDenied       = errors.New("target not allowed")
	ErrSession            = errors.New("could not open browser session")
	ErrNavigation         = errors.New("navigation failed")
	// ErrLoadTimeout is never returned as a failure; it marks the tolerated
	// case where the load event did not arrive in time.
	ErrLoadTimeout      = errors.New("load event not observed")
	ErrViewport         = errors.New("could not apply viewport")
	ErrCapture          = errors.New("screenshot call failed")
	ErrUnexpectedFormat = errors.New("unexpected format")
	ErrDecode           = errors.New("malformed image payload")
	ErrCanceled         = errors.New("capture canceled")
)

// UserMessage maps an error to the short notification shown to users. The
// full error text is kept for the diagnostics panel and logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return "Screenshot captured."
	case errors.Is(err, ErrBrowserUnavailable):
		return "No compatible browser is available on this host."
	case errors.Is(err, ErrInvalidRequest):
		return "Check the URL and viewport size."
	case errors.Is(err, ErrTargetDenied):
		return "That address is not allowed."
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return "Capture canceled."
	case errors.Is(err, ErrSession):
		return "Could not open a browser session."
	case errors.Is(err, ErrNavigation):
		return "The page could not be loaded."
	case errors.Is(err, ErrViewport):
		return "Could not resize the page."
	case errors.Is(err, ErrUnexpectedFormat):
		return "The browser returned an image in an unexpected format."
	case errors.Is(err, ErrCapture):
		return "Taking the screenshot failed."
	case errors.Is(err, ErrDecode):
		return "The image data is corrupted and cannot be downloaded."
	default:
		return "Capture failed."
	}
}
