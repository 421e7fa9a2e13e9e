// Package server exposes the agent's self-metrics over HTTP: Prometheus
// metrics on /metrics and a liveness probe on /health, with graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer serves the metrics endpoint. It is optional; the agent only
// starts one when server.enabled is set.
type HTTPServer struct {
	addr   string
	server *http.Server
}

// statusWriter captures the response status code for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// NewHTTPServer builds the metrics endpoint from its configuration and the
// registry carrying the agent metrics.
func NewHTTPServer(cfg config.MetricsServerConfig, registry *prometheus.Registry) *HTTPServer {
	logRequest := func(r *http.Request, msg string, status int, start time.Time) {
		logger.Debug(msg,
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
	}

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger.GetLogger()),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		metricsHandler.ServeHTTP(ww, r)
		logRequest(r, "metrics request", ww.status, start)
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		ww.WriteHeader(http.StatusOK)
		_, _ = ww.Write([]byte("OK"))
		logRequest(r, "health check", ww.status, start)
	})

	return &HTTPServer{
		addr: cfg.Addr,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start begins listening in the background. A listen failure is fatal.
func (s *HTTPServer) Start() {
	logger.Info("metrics server listening", zap.String("addr", s.addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("metrics server failed", zap.String("addr", s.addr), zap.Error(err))
		}
	}()
}

// Shutdown stops accepting requests and drains in-flight ones, bounded by
// shutdownTimeout. A drain timeout counts as a completed shutdown.
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil
		}
		logger.Error("metrics server shutdown failed", zap.String("addr", s.addr), zap.Error(err))
		return err
	}
	logger.Info("metrics server stopped", zap.String("addr", s.addr))
	return nil
}
