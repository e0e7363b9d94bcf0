package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"todoagent/internal/application"
	"todoagent/internal/config"
)

func TestRunMigrateUp_CreatesDatabaseInDataDir(t *testing.T) {
	dir := t.TempDir()
	if err := runMigrateUp(context.Background(), config.Config{DataDir: dir}); err != nil {
		t.Fatalf("runMigrateUp failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "todoagent.db")); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestRunServe_PassesConfigToApplication(t *testing.T) {
	old := startApplication
	t.Cleanup(func() { startApplication = old })

	var got application.StartOptions
	startApplication = func(ctx context.Context, opts application.StartOptions) (*application.Application, error) {
		got = opts
		return application.StartApplication(ctx, application.StartOptions{
			Hooks: application.Hooks{Run: func(context.Context) error { return nil }},
		})
	}

	cfg := config.Config{
		LocalHost:            "127.0.0.1",
		LocalPort:            4555,
		DataDir:              "/tmp/todoagent-main",
		StaticDir:            "/tmp/static",
		WebhookURL:           "http://engine",
		WebhookTimeoutSecond: 7,
	}
	if err := runServe(context.Background(), cfg); err != nil {
		t.Fatalf("runServe failed: %v", err)
	}
	if got.DataDir != "/tmp/todoagent-main" || got.LocalPort != 4555 || got.StaticDir != "/tmp/static" {
		t.Fatalf("unexpected start options: %#v", got)
	}
	if got.Webhook.URL != "http://engine" || got.Webhook.TimeoutSeconds != 7 {
		t.Fatalf("unexpected webhook options: %#v", got.Webhook)
	}
	if got.Logger == nil {
		t.Fatal("expected logger passed to application")
	}
}
