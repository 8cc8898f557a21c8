// Command shutter-tui is an interactive terminal front end for captures.
// Usage: shutter-tui [-config shutter.yaml] [-out dir] [url]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/logging"
	"github.com/raysh454/shutter/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	outDir := flag.String("out", "", "Directory for saved screenshots")
	logPath := flag.String("log", "", "Write logs to this file (default: discard)")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter-tui: %v\n", err)
		os.Exit(2)
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shutter-tui: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewLogger(logOut, "shutter-tui", logging.ParseLevel(cfg.LogLevel))

	a, err := app.NewApplication(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter-tui: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown", logging.Err(err))
		}
	}()

	m := tui.New(a.Orch, tui.Options{OutDir: *outDir, InitialURL: flag.Arg(0)})
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "shutter-tui: %v\n", err)
	}
}
