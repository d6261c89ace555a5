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
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, DefaultListenAddress, cfg.listenAddress)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.False(t, cfg.dataDirSet)
	assert.Equal(t, common.Address{}, cfg.Account())
	assert.Equal(t, common.Address{}, cfg.RegistryAddress())
}

func TestWithDatabasePath(t *testing.T) {
	cfg := NewConfig(WithDatabasePath(""))
	// An explicit empty path still selects in-memory storage
	assert.True(t, cfg.dataDirSet)
	assert.Empty(t, cfg.dataDir)

	cfg = NewConfig(WithDatabasePath("/tmp/metatracer"))
	assert.True(t, cfg.dataDirSet)
	assert.Equal(t, "/tmp/metatracer", cfg.dataDir)
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithBlobPlugin("s3"),
		WithMetadataPlugin("postgres"),
		WithListenAddress("127.0.0.1:9000"),
		WithPublicBaseURL("https://meta.example.com"),
		WithShutdownTimeout(5*time.Second),
		WithTracing(true),
		WithTracingStdout(true),
		WithVersion("v1.2.3"),
	)
	assert.Equal(t, "s3", cfg.blobPlugin)
	assert.Equal(t, "postgres", cfg.metadataPlugin)
	assert.Equal(t, "127.0.0.1:9000", cfg.listenAddress)
	assert.Equal(t, "https://meta.example.com", cfg.publicBaseURL)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, "v1.2.3", cfg.version)
}

func TestAccountFromPrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := NewConfig(WithPrivateKey(key))
	account := crypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, account, cfg.Account())
	assert.Equal(t, crypto.CreateAddress(account, 0), cfg.RegistryAddress())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr bool
	}{
		{name: "defaults"},
		{
			name: "tracing with stdout",
			opts: []ConfigOptionFunc{WithTracing(true), WithTracingStdout(true)},
		},
		{
			name:    "stdout without tracing",
			opts:    []ConfigOptionFunc{WithTracingStdout(true)},
			wantErr: true,
		},
		{
			name:    "negative shutdown timeout",
			opts:    []ConfigOptionFunc{WithShutdownTimeout(-time.Second)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(NewConfig(tt.opts...))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid configuration")
				return
			}
			require.NoError(t, err)
			require.NoError(t, n.Stop())
		})
	}
}
