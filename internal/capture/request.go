package capture

import (
	"fmt"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/utils"
)

// Viewport bounds accepted from users.
const (
	MinWidth  = 320
	MaxWidth  = 1920
	MinHeight = 240
	MaxHeight = 1080

	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Request is one user-submitted capture.
type Request struct {
	URL    string `json:"url" example:"https://example.com"`
	Width  int    `json:"width" example:"1024"`
	Height int    `json:"height" example:"768"`
}

// Validate checks the viewport bounds and that a URL was given.
func (r Request) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if r.Width < MinWidth || r.Width > MaxWidth {
		return fmt.Errorf("%w: width %d outside [%d, %d]", ErrInvalidRequest, r.Width, MinWidth, MaxWidth)
	}
	if r.Height < MinHeight || r.Height > MaxHeight {
		return fmt.Errorf("%w: height %d outside [%d, %d]", ErrInvalidRequest, r.Height, MinHeight, MaxHeight)
	}
	return nil
}

// Normalize validates r and returns a copy with a canonical http(s) URL.
func (r Request) Normalize() (Request, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	u, err := utils.Canonicalize(r.URL, utils.DefaultCanonicalizeOptions())
	if err != nil {
		return r, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	r.URL = u
	return r, nil
}

func (r Request) Viewport() browser.Viewport {
	return browser.Viewport{Width: r.Width, Height: r.Height}
}
