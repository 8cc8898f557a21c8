package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/journal"
	"github.com/raysh454/shutter/internal/testutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJournal_RecordGetList(t *testing.T) {
	j, err := journal.New(openTestDB(t), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		e := journal.Entry{
			ID:         id,
			URL:        "https://example.com/" + id,
			Width:      1024,
			Height:     768,
			Status:     string(capture.StatusSucceeded),
			DurationMs: 1200,
			ImageBytes: 4096,
			ImageSHA:   "sha-" + id,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	got, err := j.Get(ctx, "b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.URL != "https://example.com/b" || got.Width != 1024 || got.ImageBytes != 4096 || got.ImageSHA != "sha-b" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}

	list, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("expected newest first [c b], got %+v", list)
	}
}

func TestJournal_GetMissing(t *testing.T) {
	j, err := journal.New(openTestDB(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := j.Get(context.Background(), "nope"); !errors.Is(err, journal.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestJournal_DeleteAndImageRefs(t *testing.T) {
	j, err := journal.New(openTestDB(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	sha := "ab" + strings.Repeat("0", 62)
	for _, id := range []string{"a", "b"} {
		if err := j.Record(ctx, journal.Entry{ID: id, URL: "https://example.com", Status: "succeeded", ImageSHA: sha}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if n, err := j.ImageRefs(ctx, sha); err != nil || n != 2 {
		t.Fatalf("ImageRefs = %d, %v", n, err)
	}
	e, err := j.Delete(ctx, "a")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e.ImageSHA != sha {
		t.Errorf("deleted entry sha = %q", e.ImageSHA)
	}
	if n, _ := j.ImageRefs(ctx, sha); n != 1 {
		t.Errorf("ImageRefs after delete = %d", n)
	}
	if _, err := j.Get(ctx, "a"); !errors.Is(err, journal.ErrEntryNotFound) {
		t.Errorf("deleted entry still readable: %v", err)
	}
	if _, err := j.Delete(ctx, "a"); !errors.Is(err, journal.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestJournal_RecordRequiresID(t *testing.T) {
	j, err := journal.New(openTestDB(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := j.Record(context.Background(), journal.Entry{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestJournal_EntryFromFailedResult(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	res := &capture.Result{
		ID:         "f1",
		Request:    capture.Request{URL: "https://example.com/", Width: 800, Height: 600},
		Err:        capture.ErrNavigation,
		StartedAt:  start,
		FinishedAt: start.Add(250 * time.Millisecond),
	}
	e := journal.EntryFromResult(res)
	if e.Status != string(capture.StatusFailed) {
		t.Fatalf("status = %s", e.Status)
	}
	if e.Error != "navigation failed" {
		t.Fatalf("error = %q", e.Error)
	}
	if e.DurationMs != 250 || e.ImageBytes != 0 {
		t.Fatalf("unexpected summary: %+v", e)
	}

	j, err := journal.New(openTestDB(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := j.Record(context.Background(), e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := j.Get(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Error != "navigation failed" || got.Status != "failed" {
		t.Fatalf("unexpected stored entry: %+v", got)
	}
}

func TestJournal_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal.db")
	j, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := j.Record(context.Background(), journal.Entry{ID: "x", URL: "https://example.com/", Status: "succeeded"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	list, err := reopened.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != "x" {
		t.Fatalf("expected persisted entry, got %+v", list)
	}
}
