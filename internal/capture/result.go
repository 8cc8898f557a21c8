package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/raysh454/shutter/internal/utils"
)

const dataURIPrefix = "data:image/png;base64,"

// FilenameTimeLayout renders as YYYYMMDD_HHMMSS.
const FilenameTimeLayout = "20060102_150405"

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Result is either a PNG image or an error, never both.
type Result struct {
	ID      string  `json:"id"`
	Request Request `json:"request"`

	Image       []byte `json:"-"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`

	Title        string `json:"title,omitempty"`
	FinalURL     string `json:"final_url,omitempty"`
	LoadTimedOut bool   `json:"load_timed_out"`

	Err error `json:"-"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *Result) OK() bool {
	return r != nil && r.Err == nil && len(r.Image) > 0
}

func (r *Result) Status() Status {
	switch {
	case r.OK():
		return StatusSucceeded
	case isCanceled(r.Err):
		return StatusCanceled
	default:
		return StatusFailed
	}
}

// Message is the short user-facing notification for this result.
func (r *Result) Message() string {
	if r.OK() {
		return UserMessage(nil)
	}
	return UserMessage(r.Err)
}

// Diagnostic is the full error text, empty on success.
func (r *Result) Diagnostic() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Base64 is the standard base64 encoding of the PNG, or "" on failure.
func (r *Result) Base64() string {
	if !r.OK() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Image)
}

// DataURI renders the image inline as data:image/png;base64,<payload>.
func (r *Result) DataURI() string {
	if !r.OK() {
		return ""
	}
	return dataURIPrefix + r.Base64()
}

// Filename is the download name derived from the request URL and the time
// the capture finished.
func (r *Result) Filename() string {
	t := r.FinishedAt
	if t.IsZero() {
		t = r.StartedAt
	}
	return Filename(r.Request.URL, t)
}

// Filename returns <sanitized url fragment>_<YYYYMMDD_HHMMSS>.png.
func Filename(rawURL string, t time.Time) string {
	return fmt.Sprintf("%s_%s.png", utils.FilenameFragment(rawURL), t.Format(FilenameTimeLayout))
}

// DecodeImage decodes a base64 PNG payload, with or without the data URI
// prefix, for download.
func DecodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	payload = strings.TrimPrefix(payload, dataURIPrefix)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return raw, nil
}

// inspectPNG returns the pixel size of a PNG or ErrUnexpectedFormat.
func inspectPNG(buf []byte) (width, height int, err error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: empty image", ErrUnexpectedFormat)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUnexpectedFormat, err)
	}
	return cfg.Width, cfg.Height, nil
}
