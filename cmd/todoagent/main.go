package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"todoagent/internal/application"
	"todoagent/internal/command"
	"todoagent/internal/config"
	"todoagent/internal/db"
	"todoagent/internal/global"
	"todoagent/internal/logging"
)

var version = "dev"
var buildTime = "unknown"
var startApplication = application.StartApplication

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		Version:      version,
		LoadConfig:   config.LoadConfig,
		RunServe:     runServe,
		RunMigrateUp: runMigrateUp,
	})
	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr, Component: "todoagent"}).Error("todoagent failed", "err", err)
		os.Exit(1)
	}
}

func resolveDataDir(cfg config.Config) (string, error) {
	if dir := strings.TrimSpace(cfg.DataDir); dir != "" {
		return dir, nil
	}
	return global.DefaultDataDir()
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Writer: os.Stderr, Component: "todoagent"})
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	logger.Info("starting", "version", version, "built", buildTime, "data_dir", dataDir)

	app, err := startApplication(ctx, application.StartOptions{
		DataDir:   dataDir,
		DBDSN:     cfg.DBDSN,
		LocalHost: cfg.LocalHost,
		LocalPort: cfg.LocalPort,
		StaticDir: cfg.StaticDir,
		Webhook: application.WebhookOptions{
			URL:            cfg.WebhookURL,
			TimeoutSeconds: cfg.WebhookTimeoutSecond,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	dsn := strings.TrimSpace(cfg.DBDSN)
	if dsn == "" {
		dataDir, err := resolveDataDir(cfg)
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "todoagent.db")
	}
	gdb, err := db.OpenSQLiteWithMigrations(dsn)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dsn, err)
	}
	return db.Close(gdb)
}
