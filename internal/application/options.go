package application

import (
	"context"
	"log/slog"
)

// StartOptions defines startup options for the local server.
type StartOptions struct {
	DataDir   string
	DBDSN     string
	LocalHost string
	LocalPort int
	StaticDir string
	Webhook   WebhookOptions
	Logger    *slog.Logger
	Hooks     Hooks
}

// WebhookOptions are environment overrides on top of config.toml.
type WebhookOptions struct {
	URL            string
	TimeoutSeconds int
}

// Hooks replace the runtime; tests use them to avoid binding a port.
type Hooks struct {
	Run      func(context.Context) error
	Shutdown func(context.Context) error
}
