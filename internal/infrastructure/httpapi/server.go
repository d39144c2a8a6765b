package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"TopicScribe/internal/domain"
)

// HealthSource reports the current operational snapshot.
type HealthSource interface {
	Health() domain.HealthReport
}

// NewRouter exposes GET /health. Degraded snapshots answer 503.
func NewRouter(source HealthSource, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestID(), recovery(logger), requestLogger(logger))

	health := func(c *gin.Context) {
		report := source.Health()
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
	router.GET("/health", health)
	router.HEAD("/health", health)

	return router
}

// Server runs the health listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds a server listening on addr.
func NewServer(addr string, source HealthSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(source, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.logger.Info("health endpoint listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown health server: %w", err)
	}
	return nil
}
