package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	l          *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(l *applogger.Logger, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{l: l, httpServer: httpServer}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops the HTTP server. Pooled clients are released by
// the DI cleanup.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.l.Info("shutdown complete")
	return nil
}
