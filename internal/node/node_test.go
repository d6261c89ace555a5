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
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer"
	"github.com/blinklabs-io/metatracer/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		BindAddr:        "127.0.0.1",
		ApiPort:         8000,
		MetricsPort:     12799,
		BlobPlugin:      config.DefaultBlobPlugin,
		MetadataPlugin:  config.DefaultMetadataPlugin,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	}
}

func TestNodeOptions(t *testing.T) {
	cfg := testConfig()
	cfg.PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts, err := NodeOptions(cfg, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	nodeCfg := metatracer.NewConfig(opts...)
	assert.Equal(
		t,
		"0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		nodeCfg.Account().Hex(),
	)
}

func TestNodeOptionsErrors(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.ShutdownTimeout = "eventually"
	_, err := NodeOptions(cfg, logger, nil)
	require.Error(t, err)

	cfg = testConfig()
	cfg.PrivateKey = "zz"
	_, err = NodeOptions(cfg, logger, nil)
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	cfg := testConfig()
	cfg.PrivateKey = "secret"
	redacted := redact(cfg)
	assert.Equal(t, "<redacted>", redacted.PrivateKey)
	assert.Equal(t, "secret", cfg.PrivateKey)
}
