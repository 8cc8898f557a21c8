package server

import "github.com/raysh454/shutter/internal/browser"

// CaptureRequest is the payload for starting a capture.
type CaptureRequest struct {
	URL    string `json:"url" example:"https://example.com"`
	Width  int    `json:"width" example:"1024"`
	Height int    `json:"height" example:"768"`
}

// DownloadRequest carries a base64 image (raw or data URI) back for download.
type DownloadRequest struct {
	Image string `json:"image" example:"data:image/png;base64,iVBORw0KGgo..."`
	URL   string `json:"url" example:"https://example.com"`
}

// Limits reports the accepted viewport bounds.
type Limits struct {
	MinWidth  int `json:"min_width" example:"320"`
	MaxWidth  int `json:"max_width" example:"1920"`
	MinHeight int `json:"min_height" example:"240"`
	MaxHeight int `json:"max_height" example:"1080"`
}

// StatusResponse reports browser availability and capture capacity.
type StatusResponse struct {
	browser.Availability
	ActiveSessions        int    `json:"active_sessions" example:"0"`
	MaxConcurrentCaptures int64  `json:"max_concurrent_captures" example:"2"`
	Limits                Limits `json:"limits"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid capture request: width 5000 outside [320, 1920]"`
	Message string `json:"message,omitempty" example:"Check the URL and viewport size."`
}
