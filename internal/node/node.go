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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/metatracer"
	"github.com/blinklabs-io/metatracer/internal/config"
	"github.com/blinklabs-io/metatracer/internal/version"
)

// NodeOptions builds the node options for the loaded config
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) ([]metatracer.ConfigOptionFunc, error) {
	shutdownTimeout, err := cfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	privateKey, err := cfg.ParsePrivateKey()
	if err != nil {
		return nil, err
	}
	return []metatracer.ConfigOptionFunc{
		metatracer.WithLogger(logger),
		metatracer.WithDatabasePath(cfg.DatabasePath),
		metatracer.WithBlobPlugin(cfg.BlobPlugin),
		metatracer.WithMetadataPlugin(cfg.MetadataPlugin),
		metatracer.WithListenAddress(cfg.ApiAddress()),
		metatracer.WithPublicBaseURL(cfg.PublicBaseURL),
		metatracer.WithPrivateKey(privateKey),
		metatracer.WithShutdownTimeout(shutdownTimeout),
		metatracer.WithTracing(cfg.Tracing),
		metatracer.WithTracingStdout(cfg.TracingStdout),
		metatracer.WithVersion(version.GetVersionString()),
		metatracer.WithPrometheusRegistry(promRegistry),
	}, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", redact(cfg)), "component", "node")
	opts, err := NodeOptions(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ParseShutdownTimeout()
	n, err := metatracer.New(metatracer.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+cfg.MetricsAddress(),
		"component",
		"node",
	)
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress(),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsErrChan := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			metricsErrChan <- fmt.Errorf(
				"failed to start metrics listener: %w",
				err,
			)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run(signalCtx)
	}()

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete", "component", "node")
		return nil
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info(
			"signal received, initiating graceful shutdown",
			"component", "node",
		)
		return shutdown()
	case err := <-metricsErrChan:
		logger.Error(err.Error(), "component", "node")
		return errors.Join(err, shutdown())
	case err := <-errChan:
		if err == nil {
			logger.Info("node stopped", "component", "node")
			return shutdown()
		}
		logger.Error("node error", "error", err, "component", "node")
		return errors.Join(err, shutdown())
	}
}

// redact hides the private key when logging the config
func redact(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.PrivateKey != "" {
		ret.PrivateKey = "<redacted>"
	}
	return ret
}
