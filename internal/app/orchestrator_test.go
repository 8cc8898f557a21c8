package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/journal"
	"github.com/raysh454/shutter/internal/testutil"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.StorageRoot = ""
	cfg.Capture.LoadTimeout = 50 * time.Millisecond
	cfg.Capture.SettleDelay = 0
	cfg.JobRetentionTime = 5 * time.Second
	return cfg
}

// newTestOrchestrator wires a FakeBrowser and an in-memory journal.
func newTestOrchestrator(t *testing.T, cfg *Config, b *testutil.FakeBrowser) *Orchestrator {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	logger := &testutil.DummyLogger{}
	j, err := journal.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	o, err := NewOrchestratorWithBrowser(cfg, b, j, logger)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func drain(t *testing.T, job *Job) []JobEvent {
	t.Helper()
	var events []JobEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("job %s did not finish; events so far: %+v", job.ID, events)
		}
	}
}

var validReq = capture.Request{URL: "https://example.com", Width: 1024, Height: 768}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewOrchestrator_UnavailableBrowser(t *testing.T) {
	t.Parallel()
	o, err := NewOrchestratorWithBrowser(testConfig(), nil, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	defer o.Close()

	st := o.Status()
	if st.Available {
		t.Fatal("expected unavailable status")
	}
	if st.Message == "" {
		t.Error("expected an unavailability message")
	}

	res := o.Capture(context.Background(), validReq)
	if !errors.Is(res.Err, capture.ErrBrowserUnavailable) {
		t.Fatalf("expected ErrBrowserUnavailable, got %v", res.Err)
	}
	if res.DataURI() != "" {
		t.Error("no image may be shown when the browser is unavailable")
	}
}

func TestNewOrchestrator_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxConcurrentCaptures = 0
	if _, err := NewOrchestratorWithBrowser(cfg, &testutil.FakeBrowser{}, nil, nil); err == nil {
		t.Fatal("expected config error")
	}
}

// ─── Synchronous capture and results ───────────────────────────────────

func TestCapture_StoresResultAndJournal(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBrowser{}
	o := newTestOrchestrator(t, nil, b)

	res := o.Capture(context.Background(), validReq)
	if !res.OK() {
		t.Fatalf("capture failed: %v", res.Err)
	}

	got, err := o.Result(res.ID)
	if err != nil || got != res {
		t.Fatalf("Result(%s) = %v, %v", res.ID, got, err)
	}
	if latest := o.LatestResult(); latest != res {
		t.Fatalf("LatestResult = %v", latest)
	}

	hist, err := o.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != res.ID || hist[0].Status != "succeeded" {
		t.Fatalf("unexpected history: %+v", hist)
	}
	if hist[0].ImageBytes != len(res.Image) {
		t.Errorf("image_bytes = %d, want %d", hist[0].ImageBytes, len(res.Image))
	}
	if o.ActiveSessions() != 0 {
		t.Errorf("expected no open sessions, got %d", o.ActiveSessions())
	}
}

func TestCapture_FailureKeepsPreviousResult(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBrowser{}
	o := newTestOrchestrator(t, nil, b)

	good := o.Capture(context.Background(), validReq)
	bad := o.Capture(context.Background(), capture.Request{URL: "https://example.com", Width: 100, Height: 768})

	if bad.OK() {
		t.Fatal("expected invalid request to fail")
	}
	if latest := o.LatestResult(); latest != good {
		t.Fatalf("failed capture replaced the previous image")
	}
}

func TestResults_RetentionEvictsOldest(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.ResultRetention = 2
	o := newTestOrchestrator(t, cfg, &testutil.FakeBrowser{})

	first := o.Capture(context.Background(), validReq)
	o.Capture(context.Background(), validReq)
	o.Capture(context.Background(), validReq)

	if _, err := o.Result(first.ID); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("expected first result evicted, got %v", err)
	}
}

func TestImage_FromMemoryAndImageStore(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.ResultRetention = 1
	o := newTestOrchestrator(t, cfg, &testutil.FakeBrowser{})
	images, err := journal.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}
	o.UseImageStore(images)
	ctx := context.Background()

	first := o.Capture(ctx, validReq)
	data, name, err := o.Image(ctx, first.ID)
	if err != nil || !bytes.Equal(data, first.Image) || name != first.Filename() {
		t.Fatalf("in-memory image: %v %q", err, name)
	}

	// Evict first from memory; the image store still has it.
	o.Capture(ctx, capture.Request{URL: "https://example.org", Width: 800, Height: 600})
	if _, err := o.Result(first.ID); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("expected eviction, got %v", err)
	}
	data, name, err = o.Image(ctx, first.ID)
	if err != nil {
		t.Fatalf("Image after eviction: %v", err)
	}
	if !bytes.Equal(data, first.Image) {
		t.Error("stored image differs from the capture")
	}
	if !strings.HasPrefix(name, "example_com_") {
		t.Errorf("unexpected filename %q", name)
	}

	entries, err := o.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, e := range entries {
		if e.ImageSHA == "" || !images.Exists(e.ImageSHA) {
			t.Errorf("entry %s has no stored image", e.ID)
		}
	}
}

func TestImage_Errors(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBrowser{}
	cfg := testConfig()
	cfg.ResultRetention = 1
	o := newTestOrchestrator(t, cfg, b)
	ctx := context.Background()

	if _, _, err := o.Image(ctx, "missing"); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("expected ErrResultNotFound, got %v", err)
	}

	b.NavigateErr = errors.New("boom")
	failed := o.Capture(ctx, validReq)
	if _, _, err := o.Image(ctx, failed.ID); !errors.Is(err, ErrNoImage) {
		t.Errorf("failed capture: expected ErrNoImage, got %v", err)
	}

	// Without an image store an evicted success has metadata only.
	b.NavigateErr = nil
	ok := o.Capture(ctx, validReq)
	o.Capture(ctx, validReq)
	if _, _, err := o.Image(ctx, ok.ID); !errors.Is(err, ErrNoImage) {
		t.Errorf("evicted without store: expected ErrNoImage, got %v", err)
	}
}

func TestDeleteCapture_KeepsSharedImagesUntilLastReference(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{})
	images, err := journal.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}
	o.UseImageStore(images)
	ctx := context.Background()

	// Identical blank pages share one stored image.
	first := o.Capture(ctx, validReq)
	second := o.Capture(ctx, validReq)
	entries, err := o.History(ctx, 0)
	if err != nil || len(entries) != 2 {
		t.Fatalf("History: %v %d", err, len(entries))
	}
	sha := entries[0].ImageSHA
	if sha == "" || sha != entries[1].ImageSHA {
		t.Fatalf("expected one shared image, got %q and %q", entries[0].ImageSHA, entries[1].ImageSHA)
	}

	if err := o.DeleteCapture(ctx, first.ID); err != nil {
		t.Fatalf("DeleteCapture: %v", err)
	}
	if _, err := o.Result(first.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("deleted result still retained: %v", err)
	}
	if _, _, err := o.Image(ctx, first.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("deleted capture still downloadable: %v", err)
	}
	if !images.Exists(sha) {
		t.Fatal("image still referenced by the second capture was removed")
	}

	if err := o.DeleteCapture(ctx, second.ID); err != nil {
		t.Fatalf("DeleteCapture: %v", err)
	}
	if images.Exists(sha) {
		t.Error("unreferenced image was kept")
	}
	if latest := o.LatestResult(); latest != nil {
		t.Errorf("LatestResult after deleting everything = %v", latest.ID)
	}
	if err := o.DeleteCapture(ctx, second.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("second delete: expected ErrResultNotFound, got %v", err)
	}
}

func TestCapture_RespectsConcurrencyBound(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxConcurrentCaptures = 2
	cfg.Capture.SettleDelay = 30 * time.Millisecond
	b := &testutil.FakeBrowser{}
	o := newTestOrchestrator(t, cfg, b)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := o.Capture(context.Background(), validReq); !res.OK() {
				t.Errorf("capture failed: %v", res.Err)
			}
		}()
	}
	wg.Wait()

	if got := b.MaxConcurrent(); got > 2 {
		t.Fatalf("expected at most 2 concurrent sessions, saw %d", got)
	}
	if b.Opened() != 6 {
		t.Fatalf("expected 6 sessions, got %d", b.Opened())
	}
	if b.ActiveSessions() != 0 {
		t.Fatalf("sessions leaked: %d", b.ActiveSessions())
	}
}

func TestCapture_WaitingForSlotHonorsContext(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxConcurrentCaptures = 1
	b := &testutil.FakeBrowser{BlockCapture: true}
	o := newTestOrchestrator(t, cfg, b)

	job, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	waitForStep(t, job, capture.StepCapture)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := o.Capture(ctx, validReq)
	if !errors.Is(res.Err, capture.ErrCanceled) {
		t.Fatalf("expected ErrCanceled while waiting for slot, got %v", res.Err)
	}
	if b.Opened() != 1 {
		t.Fatalf("second capture must not open a session, opened=%d", b.Opened())
	}

	o.CancelJob(job.ID)
	drain(t, job)
}

// waitForStep consumes events until a progress event for step arrives.
func waitForStep(t *testing.T, job *Job, step capture.Step) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events:
			if !ok {
				t.Fatalf("job ended before step %s", step)
			}
			if ev.Type == JobEventProgress && ev.Step == step {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for step %s", step)
		}
	}
}

// ─── Jobs ──────────────────────────────────────────────────────────────

func TestStartCapture_InvalidRequestIsRejected(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{})

	_, err := o.StartCapture(context.Background(), capture.Request{URL: "https://example.com", Width: 5000, Height: 768})
	if !errors.Is(err, capture.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(o.ListJobs()) != 0 {
		t.Fatal("rejected request must not create a job")
	}
}

func TestStartCapture_EventsAndFinalStatus(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{})

	job, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if job.ID == "" || job.Status != JobPending {
		t.Fatalf("unexpected initial job: %+v", job)
	}

	events := drain(t, job)
	if len(events) < 3 {
		t.Fatalf("expected several events, got %+v", events)
	}
	if events[0].Status != JobPending || events[1].Status != JobRunning {
		t.Errorf("unexpected leading events: %+v", events[:2])
	}
	last := events[len(events)-1]
	if last.Type != JobEventResult || last.Status != JobDone {
		t.Fatalf("unexpected final event: %+v", last)
	}
	if last.Result == nil || last.Result.Image == "" || last.Result.Filename == "" {
		t.Fatalf("final event should carry the image: %+v", last.Result)
	}

	got := o.GetJob(job.ID)
	if got == nil || got.Status != JobDone || got.ResultID != job.ID || got.EndedAt.IsZero() {
		t.Fatalf("unexpected job after completion: %+v", got)
	}
	if _, err := o.Result(job.ID); err != nil {
		t.Fatalf("result of job not stored: %v", err)
	}
}

func TestStartCapture_FailedCapture(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{NavigateErr: errors.New("dns failure")})

	job, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	events := drain(t, job)
	last := events[len(events)-1]
	if last.Status != JobFailed || last.Error == "" {
		t.Fatalf("expected failed final event, got %+v", last)
	}
	if last.Result == nil || last.Result.Image != "" {
		t.Fatalf("failed result must not carry an image: %+v", last.Result)
	}
}

func TestCancelJob_StopsRunningCapture(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBrowser{BlockCapture: true}
	o := newTestOrchestrator(t, nil, b)

	job, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	waitForStep(t, job, capture.StepCapture)

	if !o.CancelJob(job.ID) {
		t.Fatal("CancelJob reported unknown job")
	}
	events := drain(t, job)
	last := events[len(events)-1]
	if last.Status != JobCanceled {
		t.Fatalf("expected canceled, got %+v", last)
	}
	if b.ActiveSessions() != 0 {
		t.Fatalf("canceled capture leaked a session")
	}
}

func TestJobs_UnknownIDs(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{})

	if j := o.GetJob("nonexistent"); j != nil {
		t.Errorf("expected nil for unknown job, got %+v", j)
	}
	if o.CancelJob("does-not-exist") {
		t.Error("CancelJob should report unknown job")
	}
	if jobs := o.ListJobs(); len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}
}

func TestJobs_FinishedJobsArePruned(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.JobRetentionTime = time.Nanosecond
	o := newTestOrchestrator(t, cfg, &testutil.FakeBrowser{})

	first, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	drain(t, first)
	time.Sleep(time.Millisecond)

	second, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	drain(t, second)

	if o.GetJob(first.ID) != nil {
		t.Fatal("expected finished job to be pruned")
	}
	if o.GetJob(second.ID) == nil {
		t.Fatal("latest job should still be known")
	}
}

func TestJobs_JustFinishedJobSurvivesPrune(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, nil, &testutil.FakeBrowser{})

	first, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-first.Events:
			if !ok {
				t.Fatal("events closed before the result event")
			}
			done = ev.Type == JobEventResult
		case <-timeout:
			t.Fatal("no result event")
		}
	}

	snap := o.GetJob(first.ID)
	if snap == nil || snap.Status != JobDone {
		t.Fatalf("expected finished job, got %+v", snap)
	}
	if snap.EndedAt.IsZero() {
		t.Fatal("finished job has no end time")
	}

	second, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if o.GetJob(first.ID) == nil {
		t.Fatal("job that just finished was pruned")
	}
	drain(t, first)
	drain(t, second)
}

func TestClose_CancelsJobsAndClosesBrowser(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBrowser{BlockCapture: true}
	o, err := NewOrchestratorWithBrowser(testConfig(), b, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	job, err := o.StartCapture(context.Background(), validReq)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	waitForStep(t, job, capture.StepCapture)

	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	drain(t, job)

	if _, err := o.StartCapture(context.Background(), validReq); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	if _, err := b.NewSession(context.Background()); err == nil {
		t.Fatal("browser should be closed")
	}
}
