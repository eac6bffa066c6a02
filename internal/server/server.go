// Package server exposes the change-notification, status, question and
// metrics endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
	"github.com/lumisproject/digital-twin-project-oracle/internal/rag"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/syncer"
)

// Syncer accepts change notifications and manual sync requests.
type Syncer interface {
	Trigger(commit string) (syncer.Status, error)
	SyncNow(ctx context.Context, commit string) (*index.Result, error)
	State() syncer.State
}

// Asker answers questions about the codebase.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// Server wires handlers to their collaborators.
type Server struct {
	syncer Syncer
	store  *store.FileStore
	asker  Asker
	logger *slog.Logger
	router *gin.Engine
}

// New creates a Server. asker may be nil, in which case /ask is not served.
func New(sy Syncer, st *store.FileStore, asker Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{syncer: sy, store: st, asker: asker, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.SetHTMLTemplate(statusPage)

	r.GET("/", s.handleHome)
	r.GET("/status", s.handleStatus)
	r.POST("/webhook", s.handleWebhook)
	r.POST("/sync", s.handleSync)
	if asker != nil {
		r.POST("/ask", s.handleAsk)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
