// Package tui is an interactive terminal front end for single captures.
package tui

import (
	"context"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/capture"
)

// Capturer runs captures; *app.Orchestrator satisfies it.
type Capturer interface {
	Capture(ctx context.Context, req capture.Request) *capture.Result
	Status() browser.Availability
}

const (
	fieldURL = iota
	fieldWidth
	fieldHeight
	fieldCount
)

// Options configure a Model.
type Options struct {
	// OutDir is where saved screenshots go; empty means the current
	// directory.
	OutDir string

	InitialURL string

	// CopyToClipboard replaces the system clipboard writer.
	CopyToClipboard func(string) error
}

// Model is the bubbletea model: a URL/width/height form, a spinner while
// a capture runs, and a status line.
type Model struct {
	capturer Capturer
	opts     Options

	inputs  [fieldCount]textinput.Model
	focus   int
	spinner spinner.Model

	capturing bool
	cancel    context.CancelFunc

	status    string
	statusErr bool
	detail    string

	result    *capture.Result
	savedPath string

	width int
}

// New builds a Model around c.
func New(c Capturer, opts Options) *Model {
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}

	m := &Model{capturer: c, opts: opts}

	url := textinput.New()
	url.Placeholder = "https://example.com"
	url.CharLimit = 2048
	url.Width = 60
	url.SetValue(opts.InitialURL)

	width := textinput.New()
	width.CharLimit = 4
	width.Width = 6
	width.SetValue(strconv.Itoa(capture.DefaultWidth))

	height := textinput.New()
	height.CharLimit = 4
	height.Width = 6
	height.SetValue(strconv.Itoa(capture.DefaultHeight))

	m.inputs = [fieldCount]textinput.Model{url, width, height}
	m.inputs[fieldURL].Focus()

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = titleStyle

	if st := c.Status(); st.Available {
		m.status = st.Message
	} else {
		m.status, m.statusErr = st.Message, true
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Result is the latest capture result, or nil.
func (m *Model) Result() *capture.Result {
	return m.result
}

// SavedPath is where the latest result was written, or "".
func (m *Model) SavedPath() string {
	return m.savedPath
}

// Capturing reports whether a capture is in flight.
func (m *Model) Capturing() bool {
	return m.capturing
}

// Status is the current status line and whether it reports an error.
func (m *Model) Status() (string, bool) {
	return m.status, m.statusErr
}
