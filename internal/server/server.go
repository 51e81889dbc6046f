// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/eventbus"
	"github.com/matthewbaird/turbine/internal/handler"
	"github.com/matthewbaird/turbine/internal/logger"
	"github.com/matthewbaird/turbine/internal/store"
	"github.com/matthewbaird/turbine/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Addr        string
	ReadTimeout time.Duration
	Compiler    *compiler.Compiler
	Store       store.Store
	Fanout      *eventbus.Fanout // optional; enables /v1/events/ws
	Rules       []string
}

// Router registers every route.
func Router(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.Logging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	ch := handler.NewCompileHandler(cfg.Compiler)
	rh := handler.NewRunsHandler(cfg.Store)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", ch.Validate)
		r.Post("/generate", ch.Generate)
		r.Handle("/generate/ws", wire.NewHandler(cfg.Compiler, cfg.Rules))

		r.Get("/runs", rh.ListRuns)
		r.Get("/runs/{id}", rh.GetRun)
		r.Get("/runs/{id}/artifacts", rh.ListArtifacts)
		r.Get("/runs/{id}/artifact", rh.GetArtifact)

		if cfg.Fanout != nil {
			r.Handle("/events/ws", wire.NewEventsHandler(cfg.Fanout))
		}
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	log := logger.Named("server")
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Router(cfg),
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("shutdown", zap.Error(err))
		}
	}()

	log.Infow("starting server", logger.FieldAddr, cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}
