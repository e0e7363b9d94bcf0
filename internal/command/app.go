package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"todoagent/internal/config"
)

type Deps struct {
	Version      string
	LoadConfig   func() config.Config
	RunServe     func(context.Context, config.Config) error
	RunMigrateUp func(context.Context, config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	version := strings.TrimSpace(deps.Version)
	if version == "" {
		version = "dev"
	}
	return &cli.App{
		Name:    "todoagent",
		Usage:   "todo list server with an AI automation webhook",
		Version: version,
		Flags:   serveFlags(),
		Action: func(ctx *cli.Context) error {
			return runServe(ctx, deps)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Flags: serveFlags(),
				Action: func(ctx *cli.Context) error {
					return runServe(ctx, deps)
				},
			},
			{
				Name:  "migrate",
				Usage: "run database migration",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "sync the dispatch log schema",
						Flags: []cli.Flag{dataDirFlag()},
						Action: func(ctx *cli.Context) error {
							cfg := applyFlags(ctx, loadConfig(deps))
							if deps.RunMigrateUp == nil {
								return errors.New("migrate up runner is not configured")
							}
							return deps.RunMigrateUp(ctx.Context, cfg)
						},
					},
				},
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "listen host (TODOAGENT_HOST)"},
		&cli.IntFlag{Name: "port", Usage: "listen port (TODOAGENT_PORT)"},
		dataDirFlag(),
		&cli.StringFlag{Name: "static-dir", Usage: "front end directory (TODOAGENT_STATIC_DIR)"},
		&cli.StringFlag{Name: "webhook-url", Usage: "automation webhook url (TODOAGENT_WEBHOOK_URL)"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (TODOAGENT_LOG_LEVEL)"},
	}
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "data-dir", Usage: "directory for tasks, responses and settings (TODOAGENT_DATA_DIR)"}
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(ctx *cli.Context, cfg config.Config) config.Config {
	if ctx.IsSet("host") {
		cfg.LocalHost = strings.TrimSpace(ctx.String("host"))
	}
	if ctx.IsSet("port") && ctx.Int("port") > 0 {
		cfg.LocalPort = ctx.Int("port")
	}
	if ctx.IsSet("data-dir") {
		cfg.DataDir = strings.TrimSpace(ctx.String("data-dir"))
	}
	if ctx.IsSet("static-dir") {
		cfg.StaticDir = strings.TrimSpace(ctx.String("static-dir"))
	}
	if ctx.IsSet("webhook-url") {
		cfg.WebhookURL = strings.TrimSpace(ctx.String("webhook-url"))
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = strings.TrimSpace(ctx.String("log-level"))
	}
	return cfg
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func runServe(ctx *cli.Context, deps Deps) error {
	cfg := applyFlags(ctx, loadConfig(deps))
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx.Context, cfg)
}
