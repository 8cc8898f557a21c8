// Command shutter serves the screenshot web UI and JSON API.
// Usage: shutter [-config shutter.yaml] [-addr 127.0.0.1:8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/logging"
	"github.com/raysh454/shutter/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shutter: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger := logging.NewLogger(os.Stdout, "shutter", logging.ParseLevel(cfg.LogLevel))

	srv, err := server.NewServer(server.Config{AppConfig: cfg, Logger: logger})
	if err != nil {
		logger.Error("creating server", logging.Err(err))
		os.Exit(1)
	}
	defer srv.Close()

	status := srv.Orchestrator().Status()
	logger.Info("starting",
		logging.Field{Key: "addr", Value: cfg.ListenAddr},
		logging.Field{Key: "browser_available", Value: status.Available},
		logging.Field{Key: "browser", Value: status.Message})

	httpSrv := srv.HTTPServer()
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", logging.Err(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", logging.Err(err))
		}
	}
}
