package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/logging"
)

// Options bounds every step of a capture.
type Options struct {
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	// LoadTimeout bounds the wait for the load event. Running out is not an
	// error: the capture proceeds, many pages never settle.
	LoadTimeout time.Duration `yaml:"load_timeout"`
	// SettleDelay is a fixed pause before the screenshot to let late content
	// paint. It is a heuristic, not a render signal.
	SettleDelay    time.Duration `yaml:"settle_delay"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	InspectTimeout time.Duration `yaml:"inspect_timeout"`

	AllowHosts []string `yaml:"allow_hosts"`
	DenyHosts  []string `yaml:"deny_hosts"`
}

func DefaultOptions() Options {
	return Options{
		NavigateTimeout: 30 * time.Second,
		LoadTimeout:     15 * time.Second,
		SettleDelay:     time.Second,
		CaptureTimeout:  30 * time.Second,
		InspectTimeout:  5 * time.Second,
	}
}

type Step string

const (
	StepValidate Step = "validate"
	StepAcquire  Step = "acquire"
	StepNavigate Step = "navigate"
	StepWaitLoad Step = "wait_load"
	StepViewport Step = "viewport"
	StepSettle   Step = "settle"
	StepCapture  Step = "capture"
	StepInspect  Step = "inspect"
	StepRelease  Step = "release"
)

// Event reports progress of a single capture.
type Event struct {
	Step    Step      `json:"step"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// EmitFunc receives progress events. It must not block.
type EmitFunc func(Event)

// Workflow runs captures against a Browser, one fresh session per capture.
type Workflow struct {
	browser browser.Browser
	opts    Options
	scope   *Scope
	logger  logging.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// NewWorkflow wires a browser (nil when none is available) to the capture
// steps.
func NewWorkflow(b browser.Browser, opts Options, logger logging.Logger) (*Workflow, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	scope, err := NewScope(opts.AllowHosts, opts.DenyHosts)
	if err != nil {
		return nil, err
	}
	return &Workflow{
		browser: b,
		opts:    opts,
		scope:   scope,
		logger:  logger,
		Now:     time.Now,
	}, nil
}

// Prepare normalizes and scope-checks a request without touching the
// browser.
func (w *Workflow) Prepare(req Request) (Request, error) {
	norm, err := req.Normalize()
	if err != nil {
		return req, err
	}
	if err := w.scope.Check(norm.URL); err != nil {
		return norm, err
	}
	return norm, nil
}

// Run performs one capture. It never panics on browser failures and never
// retries; every failure ends up in Result.Err. An empty id gets a new one.
func (w *Workflow) Run(ctx context.Context, id string, req Request, emit EmitFunc) *Result {
	if id == "" {
		id = uuid.New().String()
	}
	if emit == nil {
		emit = func(Event) {}
	}
	res := &Result{ID: id, Request: req, StartedAt: w.Now()}
	log := w.logger.With(logging.Field{Key: "capture_id", Value: id})

	step := func(s Step, format string, args ...any) {
		emit(Event{Step: s, Message: fmt.Sprintf(format, args...), Time: w.Now()})
	}
	finish := func(err error) *Result {
		res.FinishedAt = w.Now()
		if err != nil {
			res.Err = err
			res.Image = nil
			log.Warn("capture failed",
				logging.Field{Key: "url", Value: res.Request.URL},
				logging.Err(err),
				logging.Field{Key: "duration_ms", Value: res.Duration().Milliseconds()})
			return res
		}
		log.Info("capture succeeded",
			logging.Field{Key: "url", Value: res.Request.URL},
			logging.Field{Key: "bytes", Value: len(res.Image)},
			logging.Field{Key: "load_timed_out", Value: res.LoadTimedOut},
			logging.Field{Key: "duration_ms", Value: res.Duration().Milliseconds()})
		return res
	}

	step(StepValidate, "validating request")
	norm, err := w.Prepare(req)
	if err != nil {
		return finish(err)
	}
	res.Request = norm

	if w.browser == nil {
		return finish(ErrBrowserUnavailable)
	}

	step(StepAcquire, "opening browser session")
	sess, err := w.browser.NewSession(ctx)
	if err != nil {
		return finish(w.abort(ctx, ErrSession, err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("releasing session", logging.Err(err))
		}
		step(StepRelease, "session released")
	}()

	step(StepNavigate, "navigating to %s", norm.URL)
	navCtx, cancel := context.WithTimeout(ctx, w.opts.NavigateTimeout)
	err = sess.Navigate(navCtx, norm.URL)
	cancel()
	if err != nil {
		return finish(w.abort(ctx, ErrNavigation, err))
	}

	step(StepWaitLoad, "waiting for load event")
	loadCtx, cancel := context.WithTimeout(ctx, w.opts.LoadTimeout)
	err = sess.WaitLoad(loadCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return finish(w.abort(ctx, ErrNavigation, err))
		}
		res.LoadTimedOut = true
		log.Warn("load event not observed, continuing",
			logging.Field{Key: "url", Value: norm.URL},
			logging.Field{Key: "timeout", Value: w.opts.LoadTimeout.String()},
			logging.Err(err))
		step(StepWaitLoad, "%v after %s, continuing", ErrLoadTimeout, w.opts.LoadTimeout)
	}

	step(StepViewport, "setting viewport %dx%d", norm.Width, norm.Height)
	vpCtx, cancel := context.WithTimeout(ctx, w.opts.CaptureTimeout)
	err = sess.SetViewport(vpCtx, norm.Viewport())
	cancel()
	if err != nil {
		return finish(w.abort(ctx, ErrViewport, err))
	}

	if w.opts.SettleDelay > 0 {
		step(StepSettle, "settling for %s", w.opts.SettleDelay)
		t := time.NewTimer(w.opts.SettleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return finish(fmt.Errorf("%w: %w", ErrCanceled, ctx.Err()))
		}
	}

	step(StepCapture, "capturing screenshot")
	capCtx, cancel := context.WithTimeout(ctx, w.opts.CaptureTimeout)
	buf, err := sess.Capture(capCtx)
	cancel()
	if err != nil {
		return finish(w.abort(ctx, ErrCapture, err))
	}
	width, height, err := inspectPNG(buf)
	if err != nil {
		return finish(err)
	}
	res.Image, res.ImageWidth, res.ImageHeight = buf, width, height

	step(StepInspect, "reading page title")
	w.inspect(ctx, sess, res, log)

	return finish(nil)
}

// abort turns a step failure into the right taxonomy entry, reporting
// cancellation by the caller as ErrCanceled rather than a step failure.
func (w *Workflow) abort(ctx context.Context, kind, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// inspect fills title and final URL. Failures are only logged.
func (w *Workflow) inspect(ctx context.Context, sess browser.Session, res *Result, log logging.Logger) {
	docCtx, cancel := context.WithTimeout(ctx, w.opts.InspectTimeout)
	defer cancel()

	doc, err := sess.Document(docCtx)
	if err != nil {
		log.Debug("reading document", logging.Err(err))
		return
	}
	res.FinalURL = doc.URL
	res.Title = PageTitle(doc.HTML)
}

// PageTitle extracts the document title from rendered HTML.
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return strings.Join(strings.Fields(title), " ")
}

func isCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
