// Package server exposes the engine over HTTP with the historical /api
// route names.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/engine"
	"golang.org/x/time/rate"
)

const shutdownGrace = 5 * time.Second

type Server struct {
	engine  *engine.Engine
	cfg     config.ServerConfig
	log     *slog.Logger
	limiter *rate.Limiter
	router  *gin.Engine
}

// New wires the routes. A zero RateLimit disables limiting.
func New(eng *engine.Engine, cfg config.ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: eng, cfg: cfg, log: log}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestID(), s.observe())
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
