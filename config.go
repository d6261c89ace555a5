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

package metatracer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListenAddress   = ":8000"
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	privateKey      *ecdsa.PrivateKey
	dataDir         string
	blobPlugin      string
	metadataPlugin  string
	listenAddress   string
	publicBaseURL   string
	version         string
	shutdownTimeout time.Duration
	dataDirSet      bool
	tracing         bool
	tracingStdout   bool
}

// Account returns the node account derived from the configured private key.
// It is the zero address when no key is configured.
func (c Config) Account() common.Address {
	if c.privateKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// RegistryAddress returns the address reported for the registry. It is the
// contract address the account's first deployment would receive.
func (c Config) RegistryAddress() common.Address {
	account := c.Account()
	if account == (common.Address{}) {
		return common.Address{}
	}
	return crypto.CreateAddress(account, 0)
}

func (n *Node) configValidate() error {
	if n.config.tracingStdout && !n.config.tracing {
		return errors.New("stdout tracing requires tracing to be enabled")
	}
	if n.config.shutdownTimeout < 0 {
		return fmt.Errorf(
			"shutdown timeout must not be negative: %s",
			n.config.shutdownTimeout,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new metatracer config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		listenAddress:   DefaultListenAddress,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
		c.dataDirSet = true
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithListenAddress specifies the address for the JSON API listener. This defaults to :8000
func WithListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.listenAddress = address
	}
}

// WithPublicBaseURL specifies the base URL used when building object URIs. Relative URIs are produced when empty
func WithPublicBaseURL(baseURL string) ConfigOptionFunc {
	return func(c *Config) {
		c.publicBaseURL = baseURL
	}
}

// WithPrivateKey specifies the key of the node account. Writes without an explicit caller are made as this account
func WithPrivateKey(key *ecdsa.PrivateKey) ConfigOptionFunc {
	return func(c *Config) {
		c.privateKey = key
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithVersion specifies the version string reported by the health endpoint
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}
