package command

import (
	"context"
	"testing"

	"todoagent/internal/config"
)

func TestBuildApp_DefaultCommandIsServe(t *testing.T) {
	serveCalled := 0
	migrateCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{LocalPort: 3000}
		},
		RunServe: func(context.Context, config.Config) error {
			serveCalled++
			return nil
		},
		RunMigrateUp: func(context.Context, config.Config) error {
			migrateCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"todoagent"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if serveCalled != 1 || migrateCalled != 0 {
		t.Fatalf("unexpected call count serve=%d migrate=%d", serveCalled, migrateCalled)
	}
}

func TestBuildApp_ServeFlagsOverrideConfig(t *testing.T) {
	var got config.Config
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{LocalHost: "127.0.0.1", LocalPort: 3000, WebhookURL: "http://env"}
		},
		RunServe: func(_ context.Context, cfg config.Config) error {
			got = cfg
			return nil
		},
	})
	args := []string{"todoagent", "serve", "--port", "4800", "--data-dir", "/tmp/todo", "--webhook-url", "http://flag"}
	if err := app.RunContext(context.Background(), args); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got.LocalPort != 4800 || got.DataDir != "/tmp/todo" || got.WebhookURL != "http://flag" {
		t.Fatalf("flags not applied: %#v", got)
	}
	if got.LocalHost != "127.0.0.1" {
		t.Fatalf("unset flag should keep config value, got %q", got.LocalHost)
	}
}

func TestBuildApp_MigrateUpCommand(t *testing.T) {
	migrateCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{}
		},
		RunServe: func(context.Context, config.Config) error { return nil },
		RunMigrateUp: func(_ context.Context, cfg config.Config) error {
			migrateCalled++
			if cfg.DataDir != "/tmp/migrate" {
				t.Errorf("expected data dir flag, got %q", cfg.DataDir)
			}
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"todoagent", "migrate", "up", "--data-dir", "/tmp/migrate"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if migrateCalled != 1 {
		t.Fatalf("expected migrate command called once, got %d", migrateCalled)
	}
}

func TestBuildApp_MissingRunnerFails(t *testing.T) {
	app := BuildApp(Deps{LoadConfig: func() config.Config { return config.Config{} }})
	if err := app.RunContext(context.Background(), []string{"todoagent", "serve"}); err == nil {
		t.Fatal("expected error without serve runner")
	}
}
