// Package server exposes the anchoring pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DogStark/petchain-anchor/anchor"
)

// ShutdownTimeout bounds graceful shutdown before the listener is torn down.
const ShutdownTimeout = 10 * time.Second

// AnchorServer serves the sync/verify/status API backed by an anchor.Service.
type AnchorServer struct {
	service    *anchor.Service
	httpServer *http.Server
	logger     *zap.SugaredLogger
}

// New creates an AnchorServer listening on addr.
func New(service *anchor.Service, addr string, log *zap.SugaredLogger) *AnchorServer {
	s := &AnchorServer{
		service: service,
		logger:  log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync", s.HandleSync)
	mux.HandleFunc("/api/verify", s.HandleVerify)
	mux.HandleFunc("/api/status/", s.HandleStatus)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/api/health", s.HandleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.requestLogger(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *AnchorServer) Start() error {
	s.logger.Infow("Anchor API listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests, then closes the listener.
func (s *AnchorServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Infow("Shutting down anchor API")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs method, path, and duration for every request.
func (s *AnchorServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugw("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
