package server

import (
	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address; empty falls back to
	// AppConfig.ListenAddr.
	ListenAddr string

	AppConfig *app.Config
	Logger    logging.Logger

	// Orchestrator, when set, is used instead of building an application
	// from AppConfig. The caller keeps ownership of it.
	Orchestrator *app.Orchestrator
}
