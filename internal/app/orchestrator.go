package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/raysh454/shutter/internal/browser"
	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/journal"
	"github.com/raysh454/shutter/internal/logging"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrResultNotFound = errors.New("result not found")
	ErrClosed         = errors.New("orchestrator closed")
	ErrNoImage        = errors.New("capture has no image")
)

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Step    capture.Step `json:"step,omitempty"`
	Message string       `json:"message,omitempty"`

	// For the final result
	Result *CaptureSummary `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

type Job struct {
	ID        string          `json:"id"`
	Request   capture.Request `json:"request"`
	Status    JobStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	ResultID  string          `json:"result_id,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Events    chan JobEvent   `json:"-"`
}

func (j *Job) finished() bool {
	return j.Status == JobDone || j.Status == JobFailed || j.Status == JobCanceled
}

// CaptureSummary is the JSON view of a capture result. Image carries the
// data URI only on success.
type CaptureSummary struct {
	ID           string          `json:"id"`
	Request      capture.Request `json:"request"`
	Status       capture.Status  `json:"status"`
	Message      string          `json:"message"`
	Diagnostic   string          `json:"diagnostic,omitempty"`
	Image        string          `json:"image,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	ImageWidth   int             `json:"image_width,omitempty"`
	ImageHeight  int             `json:"image_height,omitempty"`
	Title        string          `json:"title,omitempty"`
	LoadTimedOut bool            `json:"load_timed_out"`
	DurationMs   int64           `json:"duration_ms"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Summarize builds the JSON view of res.
func Summarize(res *capture.Result) *CaptureSummary {
	if res == nil {
		return nil
	}
	s := &CaptureSummary{
		ID:           res.ID,
		Request:      res.Request,
		Status:       res.Status(),
		Message:      res.Message(),
		Diagnostic:   res.Diagnostic(),
		Title:        res.Title,
		LoadTimedOut: res.LoadTimedOut,
		DurationMs:   res.Duration().Milliseconds(),
		FinishedAt:   res.FinishedAt,
	}
	if res.OK() {
		s.Image = res.DataURI()
		s.Filename = res.Filename()
		s.ImageWidth = res.ImageWidth
		s.ImageHeight = res.ImageHeight
	}
	return s
}

// Orchestrator owns the browser, the capture concurrency bound, the
// in-memory result store and capture jobs.
type Orchestrator struct {
	cfg      *Config
	logger   logging.Logger
	browser  browser.Browser
	status   browser.Availability
	workflow *capture.Workflow
	journal  *journal.Journal
	images   *journal.ImageStore
	sem      *semaphore.Weighted

	resultsMu sync.Mutex
	results   map[string]*capture.Result
	order     []string

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	jobsWG     sync.WaitGroup
	closed     bool
}

// NewOrchestrator probes for a browser once and builds the configured
// backend. A missing browser is not an error: the orchestrator starts in
// the unavailable state and every capture fails fast.
func NewOrchestrator(cfg *Config, j *journal.Journal, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop{}
	}

	avail := browser.Probe(cfg.Browser)
	var b browser.Browser
	if avail.Available {
		var err error
		b, err = browser.NewBrowser(cfg.Browser, logger.With(logging.Field{Key: "component", Value: "browser"}))
		if err != nil {
			avail.Available = false
			avail.Message = "Browser unavailable: " + err.Error()
			b = nil
		}
	}
	return newOrchestrator(cfg, b, avail, j, logger)
}

// NewOrchestratorWithBrowser uses b as is. A nil b means no browser is
// available.
func NewOrchestratorWithBrowser(cfg *Config, b browser.Browser, j *journal.Journal, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	avail := browser.Availability{Backend: cfg.Browser.Backend, Available: b != nil}
	if b != nil {
		avail.Message = "Browser ready"
	} else {
		avail.Message = "Browser unavailable: " + browser.ErrNoExecutable.Error()
	}
	return newOrchestrator(cfg, b, avail, j, logger)
}

func newOrchestrator(cfg *Config, b browser.Browser, avail browser.Availability, j *journal.Journal, logger logging.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		if b != nil {
			_ = b.Close()
		}
		return nil, err
	}
	log := logger.With(logging.Field{Key: "component", Value: "orchestrator"})

	// A typed-nil interface would look available to the workflow.
	var wfBrowser browser.Browser
	if avail.Available {
		wfBrowser = b
	}
	wf, err := capture.NewWorkflow(wfBrowser, cfg.Capture, logger.With(logging.Field{Key: "component", Value: "capture"}))
	if err != nil {
		if b != nil {
			_ = b.Close()
		}
		return nil, fmt.Errorf("new workflow: %w", err)
	}

	if avail.Available {
		log.Info("browser available",
			logging.Field{Key: "backend", Value: string(avail.Backend)},
			logging.Field{Key: "exec_path", Value: avail.ExecPath})
	} else {
		log.Warn("browser unavailable, captures are disabled",
			logging.Field{Key: "backend", Value: string(avail.Backend)},
			logging.Field{Key: "reason", Value: avail.Message})
	}

	return &Orchestrator{
		cfg:        cfg,
		logger:     log,
		browser:    wfBrowser,
		status:     avail,
		workflow:   wf,
		journal:    j,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrentCaptures),
		results:    make(map[string]*capture.Result),
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}, nil
}

// Status reports browser availability as computed at startup.
func (o *Orchestrator) Status() browser.Availability {
	return o.status
}

// Config returns the configuration the orchestrator runs with.
func (o *Orchestrator) Config() *Config {
	return o.cfg
}

// ActiveSessions is the number of browser sessions currently open.
func (o *Orchestrator) ActiveSessions() int {
	if o.browser == nil {
		return 0
	}
	return o.browser.ActiveSessions()
}

// Prepare validates and scope-checks req without capturing.
func (o *Orchestrator) Prepare(req capture.Request) (capture.Request, error) {
	return o.workflow.Prepare(req)
}

// Capture runs one capture synchronously and stores its result.
func (o *Orchestrator) Capture(ctx context.Context, req capture.Request) *capture.Result {
	return o.capture(ctx, "", req, nil)
}

func (o *Orchestrator) capture(ctx context.Context, id string, req capture.Request, emit capture.EmitFunc) *capture.Result {
	if id == "" {
		id = uuid.New().String()
	}

	var res *capture.Result
	if err := o.sem.Acquire(ctx, 1); err != nil {
		now := time.Now()
		res = &capture.Result{
			ID:         id,
			Request:    req,
			Err:        fmt.Errorf("%w: waiting for a capture slot: %w", capture.ErrCanceled, err),
			StartedAt:  now,
			FinishedAt: now,
		}
	} else {
		res = o.workflow.Run(ctx, id, req, emit)
		o.sem.Release(1)
	}

	o.storeResult(res)
	o.record(ctx, res)
	return res
}

func (o *Orchestrator) record(ctx context.Context, res *capture.Result) {
	if o.journal == nil {
		return
	}
	entry := journal.EntryFromResult(res)
	if o.images != nil && res.OK() {
		sha, err := o.images.Put(res.Image)
		if err != nil {
			o.logger.Warn("storing image", logging.Field{Key: "capture_id", Value: res.ID}, logging.Err(err))
		} else {
			entry.ImageSHA = sha
		}
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.journal.Record(recCtx, entry); err != nil {
		o.logger.Warn("recording capture", logging.Field{Key: "capture_id", Value: res.ID}, logging.Err(err))
	}
}

func (o *Orchestrator) storeResult(res *capture.Result) {
	o.resultsMu.Lock()
	defer o.resultsMu.Unlock()
	if _, ok := o.results[res.ID]; !ok {
		o.order = append(o.order, res.ID)
	}
	o.results[res.ID] = res
	for len(o.order) > o.cfg.ResultRetention {
		evict := o.order[0]
		o.order = o.order[1:]
		delete(o.results, evict)
	}
}

// UseImageStore keeps successful images in s from now on. Call it before
// captures start.
func (o *Orchestrator) UseImageStore(s *journal.ImageStore) {
	o.images = s
}

// Image returns the PNG and download name of capture id, from memory or
// from the image store. A capture that failed, or whose image was not kept,
// gives ErrNoImage.
func (o *Orchestrator) Image(ctx context.Context, id string) ([]byte, string, error) {
	if res, err := o.Result(id); err == nil {
		if !res.OK() {
			return nil, "", ErrNoImage
		}
		return res.Image, res.Filename(), nil
	}

	if o.journal == nil {
		return nil, "", ErrResultNotFound
	}
	e, err := o.journal.Get(ctx, id)
	if err != nil {
		if errors.Is(err, journal.ErrEntryNotFound) {
			return nil, "", ErrResultNotFound
		}
		return nil, "", err
	}
	if e.ImageSHA == "" || o.images == nil {
		return nil, "", ErrNoImage
	}
	data, err := o.images.Get(e.ImageSHA)
	if err != nil {
		if errors.Is(err, journal.ErrImageNotFound) {
			return nil, "", ErrNoImage
		}
		return nil, "", err
	}
	finished := e.CreatedAt.Add(time.Duration(e.DurationMs) * time.Millisecond)
	return data, capture.Filename(e.URL, finished), nil
}

// DeleteCapture forgets capture id: the retained result, its journal entry
// and, once no other entry shares it, the stored image.
func (o *Orchestrator) DeleteCapture(ctx context.Context, id string) error {
	o.resultsMu.Lock()
	_, inMemory := o.results[id]
	if inMemory {
		delete(o.results, id)
		for i, rid := range o.order {
			if rid == id {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
	o.resultsMu.Unlock()

	if o.journal == nil {
		if !inMemory {
			return ErrResultNotFound
		}
		return nil
	}
	e, err := o.journal.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, journal.ErrEntryNotFound) {
			if inMemory {
				return nil
			}
			return ErrResultNotFound
		}
		return err
	}
	if e.ImageSHA == "" || o.images == nil {
		return nil
	}
	refs, err := o.journal.ImageRefs(ctx, e.ImageSHA)
	if err != nil {
		return err
	}
	if refs == 0 {
		if err := o.images.Delete(e.ImageSHA); err != nil {
			return err
		}
	}
	o.logger.Info("capture deleted", logging.Field{Key: "capture_id", Value: id})
	return nil
}

// Result returns a stored result by id.
func (o *Orchestrator) Result(id string) (*capture.Result, error) {
	o.resultsMu.Lock()
	defer o.resultsMu.Unlock()
	res, ok := o.results[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// LatestResult returns the most recent successful result, or nil.
func (o *Orchestrator) LatestResult() *capture.Result {
	o.resultsMu.Lock()
	defer o.resultsMu.Unlock()
	for i := len(o.order) - 1; i >= 0; i-- {
		if res := o.results[o.order[i]]; res.OK() {
			return res
		}
	}
	return nil
}

// History lists journal entries, newest first.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if o.journal == nil {
		return []journal.Entry{}, nil
	}
	return o.journal.List(ctx, limit)
}

// --- jobs ---

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) updateJob(jobID string, fn func(*Job)) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		fn(j)
	}
}

// pruneJobs drops finished jobs older than the retention time. Caller holds
// jobsMu.
func (o *Orchestrator) pruneJobs(now time.Time) {
	for id, j := range o.jobs {
		if j.finished() && now.Sub(j.EndedAt) > o.cfg.JobRetentionTime {
			delete(o.jobs, id)
		}
	}
}

// StartCapture validates req and runs the capture in the background. The
// returned Job's Events channel receives status and progress events and is
// closed when the capture ends.
func (o *Orchestrator) StartCapture(ctx context.Context, req capture.Request) (*Job, error) {
	if _, err := o.workflow.Prepare(req); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now().UTC()
	job := &Job{
		ID:        jobID,
		Request:   req,
		Status:    JobPending,
		StartedAt: now,
		Events:    make(chan JobEvent, 32),
	}
	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	o.pruneJobs(now)
	o.jobs[jobID] = job
	o.jobCancels[jobID] = cancel
	o.jobsWG.Add(1)
	snapshot := *job
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	go o.runJob(jobCtx, job, cancel)

	return &snapshot, nil
}

func (o *Orchestrator) runJob(ctx context.Context, job *Job, cancel context.CancelFunc) {
	jobID := job.ID
	defer o.jobsWG.Done()
	defer func() {
		cancel()
		o.jobsMu.Lock()
		delete(o.jobCancels, jobID)
		o.jobsMu.Unlock()

		// Close events channel so websocket loop can terminate cleanly
		close(job.Events)
	}()

	o.updateJob(jobID, func(j *Job) { j.Status = JobRunning })
	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

	res := o.capture(ctx, jobID, job.Request, func(ev capture.Event) {
		o.emitJobEvent(jobID, JobEvent{
			JobID:   jobID,
			Type:    JobEventProgress,
			Step:    ev.Step,
			Message: ev.Message,
		})
	})

	var status JobStatus
	switch res.Status() {
	case capture.StatusSucceeded:
		status = JobDone
	case capture.StatusCanceled:
		status = JobCanceled
	default:
		status = JobFailed
	}
	o.updateJob(jobID, func(j *Job) {
		j.Status = status
		j.EndedAt = time.Now().UTC()
		j.ResultID = res.ID
		j.Error = res.Diagnostic()
	})
	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   JobEventResult,
		Status: status,
		Error:  res.Diagnostic(),
		Result: Summarize(res),
	})
}

// CancelJob cancels a running job. It reports whether the job exists.
func (o *Orchestrator) CancelJob(jobID string) bool {
	o.jobsMu.Lock()
	_, exists := o.jobs[jobID]
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
	return exists
}

// GetJob returns a snapshot of the job, or nil.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	snapshot := *j
	return &snapshot
}

// ListJobs returns snapshots of known jobs, oldest first.
func (o *Orchestrator) ListJobs() []Job {
	o.jobsMu.Lock()
	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, *j)
	}
	o.jobsMu.Unlock()
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.Before(out[b].StartedAt) })
	return out
}

// Close cancels running jobs, waits for them, and shuts the browser down.
func (o *Orchestrator) Close() error {
	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		return nil
	}
	o.closed = true
	for _, cancel := range o.jobCancels {
		cancel()
	}
	o.jobsMu.Unlock()

	o.jobsWG.Wait()

	if o.browser != nil {
		if err := o.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
	}
	return nil
}
