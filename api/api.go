// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListenAddr = ":8000"
	maxRequestBody    = 1 << 20 // 1 MB
	tracerName        = "github.com/blinklabs-io/metatracer/api"
)

// Config holds configuration for the API server
type Config struct {
	PromRegistry  prometheus.Registerer
	ListenAddress string
	Version       string
	// Account is the identity used for writes that do not name a caller
	Account common.Address
	// RegistryAddress is reported by GET /api/address
	RegistryAddress common.Address
}

// Server is the metadata registry JSON API server
type Server struct {
	config     Config
	logger     *slog.Logger
	registry   Registry
	objects    ObjectStore
	metrics    *apiMetrics
	tracer     trace.Tracer
	handler    http.Handler
	httpServer *http.Server
	addr       net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg Config,
	reg Registry,
	objects ObjectStore,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddr
	}
	s := &Server{
		config:   cfg,
		logger:   logger,
		registry: reg,
		objects:  objects,
		tracer:   otel.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		s.metrics = newApiMetrics(cfg.PromRegistry)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.correlationID)
	r.Use(s.instrument)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/address", s.handleAddress)
		r.Route("/metadata", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{recordId}", s.handleGet)
			r.Put("/{recordId}", s.handleUpdate)
			r.Get("/{recordId}/history", s.handleHistory)
		})
	})
	r.Get("/objects/{recordId}/{name}", s.handleObject)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(
			w,
			http.StatusMethodNotAllowed,
			"Method Not Allowed",
			"method not allowed for this route",
		)
	})
	return r
}

// Start binds the listener and serves in a background goroutine. The server
// shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or an empty string before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}
