package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"todoagent/internal/appserver"
	"todoagent/internal/db"
	"todoagent/internal/dispatchlog"
	"todoagent/internal/gateway"
	"todoagent/internal/global"
	"todoagent/internal/lifecycle"
	"todoagent/internal/localapi"
	"todoagent/internal/logging"
	"todoagent/internal/relay"
	"todoagent/internal/taskstore"
)

const (
	dbFileName       = "todoagent.db"
	defaultLocalPort = 3000
	httpStopTimeout  = 3 * time.Second
)

type Application struct {
	localAPIBaseURL string
	dbDSN           string
	runFn           func(context.Context) error
	shutdownFn      func(context.Context) error
}

func StartApplication(_ context.Context, opts StartOptions) (*Application, error) {
	host := strings.TrimSpace(opts.LocalHost)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.LocalPort
	if port <= 0 {
		port = defaultLocalPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	app := &Application{
		localAPIBaseURL: "http://" + addr,
		dbDSN:           strings.TrimSpace(opts.DBDSN),
		runFn: func(context.Context) error {
			return nil
		},
		shutdownFn: func(context.Context) error {
			return nil
		},
	}
	if opts.Hooks.Run != nil || opts.Hooks.Shutdown != nil {
		if opts.Hooks.Run != nil {
			app.runFn = opts.Hooks.Run
		}
		if opts.Hooks.Shutdown != nil {
			app.shutdownFn = opts.Hooks.Shutdown
		}
		return app, nil
	}
	if err := bootstrapLocalRuntime(app, opts, addr); err != nil {
		return nil, err
	}
	return app, nil
}

func bootstrapLocalRuntime(app *Application, opts StartOptions, addr string) error {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	dataDir := strings.TrimSpace(opts.DataDir)
	if dataDir == "" {
		return errors.New("data dir is required")
	}
	dsn := strings.TrimSpace(opts.DBDSN)
	if dsn == "" {
		dsn = filepath.Join(dataDir, dbFileName)
	}
	gdb, err := db.OpenSQLiteWithMigrations(dsn)
	if err != nil {
		return fmt.Errorf("open dispatch log db: %w", err)
	}
	dispatches, err := dispatchlog.NewStore(gdb)
	if err != nil {
		_ = db.Close(gdb)
		return err
	}

	settings := global.NewConfigStore(dataDir)
	settings.URLOverride = strings.TrimSpace(opts.Webhook.URL)
	settings.TimeoutOverride = opts.Webhook.TimeoutSeconds
	if _, err := settings.LoadOrInit(); err != nil {
		_ = db.Close(gdb)
		return fmt.Errorf("load settings: %w", err)
	}

	tasks := taskstore.NewTaskStore(filepath.Join(dataDir, taskstore.TasksFileName))
	responses := taskstore.NewResponseStore(filepath.Join(dataDir, taskstore.ResponsesFileName))
	events := relay.New()
	gw := gateway.New(gateway.Deps{
		Config:    settings,
		Tasks:     tasks,
		Responses: responses,
		Publisher: events,
		Recorder:  dispatches,
		Logger:    logger.With("module", "gateway"),
	})
	server := appserver.NewServer(appserver.Deps{
		LocalAPI: localapi.Deps{
			Tasks:       tasks,
			Responses:   responses,
			Gateway:     gw,
			Events:      events,
			DispatchLog: dispatches,
			ConfigStore: settings,
			Logger:      logger.With("module", "localapi"),
		},
		WebUI: appserver.WebUIConfig{StaticDir: strings.TrimSpace(opts.StaticDir)},
	})

	// Request contexts derive from streamCtx so open /events and /ws streams
	// end as soon as shutdown starts instead of holding it to the deadline.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}
	httpServer.RegisterOnShutdown(cancelStreams)
	stopHTTP := func() error {
		cancelStreams()
		ctx, cancel := context.WithTimeout(context.Background(), httpStopTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	var closeDBOnce sync.Once
	closeDB := func() error {
		var err error
		closeDBOnce.Do(func() { err = db.Close(gdb) })
		return err
	}

	mgr := lifecycle.NewManager(logger)
	mgr.AddRun("http-server", func(runCtx context.Context) error {
		go func() {
			<-runCtx.Done()
			_ = stopHTTP()
		}()
		logger.Info("listening", "addr", addr, "data_dir", dataDir)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	mgr.AddShutdown("close-dispatch-db", func(context.Context) error {
		return closeDB()
	})
	mgr.AddShutdown("http-server-shutdown", func(context.Context) error {
		return stopHTTP()
	})

	app.dbDSN = dsn
	app.runFn = func(ctx context.Context) error {
		return mgr.StartAndWait(ctx)
	}
	app.shutdownFn = func(context.Context) error {
		return errors.Join(stopHTTP(), closeDB())
	}
	return nil
}

func (a *Application) LocalAPIBaseURL() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.localAPIBaseURL)
}

func (a *Application) DBDSN() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.dbDSN)
}

func (a *Application) Run(ctx context.Context) error {
	if a == nil || a.runFn == nil {
		return nil
	}
	return a.runFn(ctx)
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil || a.shutdownFn == nil {
		return nil
	}
	return a.shutdownFn(ctx)
}
