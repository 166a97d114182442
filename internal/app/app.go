package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/lecturedesk/lecturedesk/internal/config"
	"github.com/lecturedesk/lecturedesk/internal/utils"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

// Application wires configuration, router, scheduler, and server lifecycle.
type Application struct {
	cfg       config.Application
	router    *mux.Router
	srv       *http.Server
	scheduler *Scheduler
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps, err := BuildDependencies(cfg, utils.SystemClock{}, nil)
	if err != nil {
		return nil, err
	}

	r, err := NewRouter(deps, cfg)
	if err != nil {
		return nil, err
	}

	scheduler, err := NewScheduler(deps, cfg.Prefetch.Cron, cfg.Location())
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		WriteTimeout: cfg.WriteTimeout(),
		ReadTimeout:  2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, router: r, srv: srv, scheduler: scheduler}, nil
}

// NewRouter builds the router with middleware and routes.
func NewRouter(deps *Dependencies, cfg config.Application) (*mux.Router, error) {
	r := mux.NewRouter()
	if err := SetupMiddleware(r, deps, cfg); err != nil {
		return nil, err
	}
	RegisterRoutes(r, deps)
	return r, nil
}

// Run starts the HTTP server and the scheduler, and blocks until SIGINT or SIGTERM.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		a.scheduler.Stop(context.Background())
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.scheduler.Stop(shutdownCtx)
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serverErr
}
