// Command shutter-capture takes one screenshot and writes it as a PNG.
// Usage: shutter-capture -url https://example.com [-width 1280] [-height 720] [-out path]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/cli"
	"github.com/raysh454/shutter/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter-capture: %v\n", err)
		return 2
	}
	cfg, err := args.Config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter-capture: %v\n", err)
		return 2
	}

	// Logs go to stderr so -out - keeps stdout clean.
	logger := logging.NewLogger(os.Stderr, "shutter-capture", logging.ParseLevel(cfg.LogLevel))

	a, err := app.NewApplication(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter-capture: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown", logging.Err(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, _, err := cli.Run(ctx, a.Orch, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "shutter-capture: %s\n", capture.UserMessage(err))
		logger.Error("capture failed", logging.Err(err))
		return 1
	}
	return 0
}
