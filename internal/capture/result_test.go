package capture_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shutter/internal/capture"
)

func TestDecodeImage_Malformed(t *testing.T) {
	t.Parallel()
	for _, payload := range []string{"", "   ", "data:image/png;base64,", "not*base64!", "YWJj="} {
		_, err := capture.DecodeImage(payload)
		assert.ErrorIs(t, err, capture.ErrDecode, "payload %q", payload)
	}
}

func TestResult_FailureHasNoImageViews(t *testing.T) {
	t.Parallel()
	res := &capture.Result{
		Image: []byte{1, 2, 3},
		Err:   capture.ErrNavigation,
	}
	assert.False(t, res.OK())
	assert.Empty(t, res.Base64())
	assert.Empty(t, res.DataURI())
	assert.Equal(t, "The page could not be loaded.", res.Message())
	assert.Equal(t, "navigation failed", res.Diagnostic())
}

func TestResult_StatusForCancellation(t *testing.T) {
	t.Parallel()
	res := &capture.Result{Err: context.Canceled}
	assert.Equal(t, capture.StatusCanceled, res.Status())
}

func TestResult_Duration(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	res := &capture.Result{StartedAt: start}
	assert.Zero(t, res.Duration())
	res.FinishedAt = start.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, res.Duration())
}

func TestFilename_ScenarioA(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 19, 14, 2, 9, 0, time.Local)
	assert.Equal(t, "example_com_20261019_140209.png", capture.Filename("https://example.com", at))
}

func TestUserMessage_KnownKinds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Screenshot captured.", capture.UserMessage(nil))
	assert.Equal(t, "The browser returned an image in an unexpected format.",
		capture.UserMessage(errors.Join(errors.New("x"), capture.ErrUnexpectedFormat)))
	assert.Equal(t, "Capture failed.", capture.UserMessage(errors.New("mystery")))
}

func TestRequest_NormalizeCanonicalizes(t *testing.T) {
	t.Parallel()
	req, err := capture.Request{URL: " Example.com/a#x ", Width: 320, Height: 240}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a#x", req.URL)

	req, err = capture.Request{URL: "https://example.com", Width: 1920, Height: 1080}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 1920, req.Viewport().Width)
	assert.Equal(t, 1080, req.Viewport().Height)
}

func TestScope(t *testing.T) {
	t.Parallel()
	s, err := capture.NewScope([]string{"example.com", "*.example.com"}, []string{"admin.example.com"})
	require.NoError(t, err)

	assert.NoError(t, s.Check("https://example.com/"))
	assert.NoError(t, s.Check("https://www.example.com/"))
	assert.ErrorIs(t, s.Check("https://a.b.example.com/"), capture.ErrTargetDenied)
	assert.ErrorIs(t, s.Check("https://admin.example.com/"), capture.ErrTargetDenied)
	assert.ErrorIs(t, s.Check("https://other.org/"), capture.ErrTargetDenied)

	var nilScope *capture.Scope
	assert.NoError(t, nilScope.Check("https://anything.test/"))

	_, err = capture.NewScope([]string{"[unclosed"}, nil)
	assert.Error(t, err)
}
