package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/raysh454/shutter/internal/capture"
)

type captureDoneMsg struct {
	res *capture.Result
}

type savedMsg struct {
	path string
	err  error
}

type copiedMsg struct {
	path string
	err  error
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.capturing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case captureDoneMsg:
		return m.handleCaptureDone(msg)

	case savedMsg:
		if msg.err != nil {
			m.setError("Could not save the screenshot.", msg.err.Error())
			return m, nil
		}
		m.savedPath = msg.path
		m.setOK("Saved " + msg.path)
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError("Could not copy to the clipboard.", msg.err.Error())
			return m, nil
		}
		m.setOK("Copied " + msg.path + " to the clipboard")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.capturing && m.cancel != nil {
			m.cancel()
			m.status, m.statusErr = "Canceling...", false
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyTab, tea.KeyDown:
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil

	case tea.KeyEnter:
		return m.startCapture()

	case tea.KeyCtrlS:
		return m, m.saveCmd()

	case tea.KeyCtrlY:
		return m, m.copyCmd()
	}

	if m.capturing {
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m *Model) setOK(status string) {
	m.status, m.statusErr, m.detail = status, false, ""
}

func (m *Model) setError(status, detail string) {
	m.status, m.statusErr, m.detail = status, true, detail
}

// request reads the form. Numbers that do not parse are reported as an
// invalid request, like any out-of-range value.
func (m *Model) request() (capture.Request, error) {
	w, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldWidth].Value()))
	if err != nil {
		return capture.Request{}, fmt.Errorf("%w: width must be a number", capture.ErrInvalidRequest)
	}
	h, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldHeight].Value()))
	if err != nil {
		return capture.Request{}, fmt.Errorf("%w: height must be a number", capture.ErrInvalidRequest)
	}
	return capture.Request{URL: m.inputs[fieldURL].Value(), Width: w, Height: h}, nil
}

func (m *Model) startCapture() (tea.Model, tea.Cmd) {
	if m.capturing {
		return m, nil
	}
	req, err := m.request()
	if err != nil {
		m.setError(capture.UserMessage(err), err.Error())
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.capturing, m.cancel = true, cancel
	m.savedPath = ""
	m.setOK("Capturing " + req.URL)

	c := m.capturer
	run := func() tea.Msg {
		return captureDoneMsg{res: c.Capture(ctx, req)}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m *Model) handleCaptureDone(msg captureDoneMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.capturing, m.cancel = false, nil

	res := msg.res
	if !res.OK() {
		// The previous image stays available for saving.
		m.setError(res.Message(), res.Diagnostic())
		return m, nil
	}
	m.result = res
	status := fmt.Sprintf("Captured %dx%d in %s", res.ImageWidth, res.ImageHeight, res.Duration().Round(time.Millisecond))
	if res.LoadTimedOut {
		status += " (load event not observed)"
	}
	m.setOK(status + ". ctrl+s to save")
	return m, nil
}

func (m *Model) saveCmd() tea.Cmd {
	res := m.result
	if res == nil {
		m.setError("Nothing to save yet.", "")
		return nil
	}
	dir := m.opts.OutDir
	return func() tea.Msg {
		path := filepath.Join(dir, res.Filename())
		if err := os.WriteFile(path, res.Image, 0o644); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: path}
	}
}

func (m *Model) copyCmd() tea.Cmd {
	path := m.savedPath
	if path == "" {
		m.setError("Save the screenshot before copying its path.", "")
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	write := m.opts.CopyToClipboard
	return func() tea.Msg {
		return copiedMsg{path: path, err: write(path)}
	}
}
