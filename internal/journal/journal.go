package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrEntryNotFound = errors.New("journal entry not found")

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// Entry is the metadata recorded for one capture attempt. ImageSHA names
// the PNG in an ImageStore when one was kept.
type Entry struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Title        string    `json:"title,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	ImageBytes   int       `json:"image_bytes"`
	ImageSHA     string    `json:"image_sha,omitempty"`
	LoadTimedOut bool      `json:"load_timed_out"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntryFromResult summarizes a finished capture.
func EntryFromResult(res *capture.Result) Entry {
	created := res.StartedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Entry{
		ID:           res.ID,
		URL:          res.Request.URL,
		Width:        res.Request.Width,
		Height:       res.Request.Height,
		Status:       string(res.Status()),
		Error:        res.Diagnostic(),
		Title:        res.Title,
		DurationMs:   res.Duration().Milliseconds(),
		ImageBytes:   len(res.Image),
		LoadTimedOut: res.LoadTimedOut,
		CreatedAt:    created,
	}
}

// Journal keeps a SQLite history of capture attempts.
type Journal struct {
	db     *sql.DB
	owned  bool
	logger logging.Logger
}

// New runs the schema against db and returns a Journal over it. The caller
// keeps ownership of db.
func New(db *sql.DB, logger logging.Logger) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Journal{db: db, logger: logger.With(logging.Field{Key: "component", Value: "journal"})}, nil
}

// Open opens (creating if needed) the SQLite file at path. ":memory:" gives
// a private in-memory journal.
func Open(path string, logger logging.Logger) (*Journal, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal dir: %w", err)
		}
		dsn = "file:" + path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal pragmas: %w", err)
	}
	j, err := New(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	j.owned = true
	return j, nil
}

// Record inserts e, replacing any entry with the same ID.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("record capture: id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO captures
             (id, url, width, height, status, error, title, duration_ms, image_bytes, image_sha, load_timeout, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.URL, e.Width, e.Height, e.Status, e.Error, e.Title,
		e.DurationMs, e.ImageBytes, nullString(e.ImageSHA), boolToInt(e.LoadTimedOut), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	j.logger.Debug("capture recorded",
		logging.Field{Key: "capture_id", Value: e.ID},
		logging.Field{Key: "status", Value: e.Status})
	return nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, url, width, height, status, error, title, duration_ms, image_bytes, image_sha, load_timeout, created_at
         FROM captures
         WHERE id = ?
         LIMIT 1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns the most recent entries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, url, width, height, status, error, title, duration_ms, image_bytes, image_sha, load_timeout, created_at
         FROM captures
         ORDER BY created_at DESC, rowid DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Delete removes the entry with the given id and returns it.
func (j *Journal) Delete(ctx context.Context, id string) (*Entry, error) {
	e, err := j.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := j.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete capture: %w", err)
	}
	j.logger.Debug("capture deleted", logging.Field{Key: "capture_id", Value: id})
	return e, nil
}

// ImageRefs counts entries that point at the image sha.
func (j *Journal) ImageRefs(ctx context.Context, sha string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures WHERE image_sha = ?`, sha).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count image refs: %w", err)
	}
	return n, nil
}

// Close closes the database when the Journal opened it.
func (j *Journal) Close() error {
	if !j.owned {
		return nil
	}
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var errText, title, sha sql.NullString
	var loadTimeout int
	var created int64
	if err := s.Scan(&e.ID, &e.URL, &e.Width, &e.Height, &e.Status, &errText, &title,
		&e.DurationMs, &e.ImageBytes, &sha, &loadTimeout, &created); err != nil {
		return nil, err
	}
	e.Error = errText.String
	e.Title = title.String
	e.ImageSHA = sha.String
	e.LoadTimedOut = loadTimeout != 0
	e.CreatedAt = time.UnixMilli(created)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
