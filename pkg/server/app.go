package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MacroPull/internal/domain/repository"
	pcache "MacroPull/pkg/cache"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	store      pcache.Service
	publisher  repository.SnapshotPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	store pcache.Service,
	pub repository.SnapshotPublisher,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: srv,
		store:      store,
		publisher:  pub,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and shuts down when ctx ends.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("app started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops all services.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	// Publisher before store: in-flight builds may still publish.
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("snapshot publisher close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return firstErr
}
