package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/raysh454/shutter/internal/journal"
	"github.com/raysh454/shutter/internal/logging"
)

// Application is the runtime state shared by an entry point: config,
// logger, journal and orchestrator. Pass it to the presentation layer
// rather than using package-level variables.
type Application struct {
	Config  *Config
	Logger  logging.Logger
	Journal *journal.Journal
	Orch    *Orchestrator
}

// NewApplication opens the journal and builds the orchestrator.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewLogger(os.Stdout, "shutter", logging.ParseLevel(cfg.LogLevel))
	}

	path, err := cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	orch, err := NewOrchestrator(cfg, j, logger)
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("new orchestrator: %w", err)
	}

	imagesDir, err := cfg.ImagesPath()
	if err == nil && imagesDir != "" {
		var images *journal.ImageStore
		images, err = journal.NewImageStore(imagesDir)
		if err == nil {
			orch.UseImageStore(images)
		}
	}
	if err != nil {
		_ = orch.Close()
		_ = j.Close()
		return nil, fmt.Errorf("open image store: %w", err)
	}

	return &Application{Config: cfg, Logger: logger, Journal: j, Orch: orch}, nil
}

// Shutdown stops the orchestrator and closes the journal, bounded by ctx.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Orch.Close() }()

	var firstErr error
	select {
	case err := <-done:
		if err != nil {
			a.Logger.Warn("orchestrator shutdown returned error", logging.Err(err))
			firstErr = err
		}
	case <-shutdownCtx.Done():
		a.Logger.Warn("orchestrator shutdown timed out")
		firstErr = shutdownCtx.Err()
	}

	if err := a.Journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close journal: %w", err)
	}
	return firstErr
}
