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

package config

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/database/plugin"
	_ "github.com/blinklabs-io/metatracer/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/metatracer/database/plugin/metadata/sqlite"
)

func resetGlobalConfig() {
	globalConfig = defaultConfig()
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "metatracer.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, "0.0.0.0:8000", cfg.ApiAddress())
	assert.Equal(t, "0.0.0.0:12799", cfg.MetricsAddress())
}

func TestLoadFlatConfigFile(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfigFile(t, `
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9001
databasePath: "/var/lib/metatracer"
publicBaseUrl: "https://meta.example.com"
shutdownTimeout: "10s"
tracing: true
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	expected := defaultConfig()
	expected.BindAddr = "127.0.0.1"
	expected.ApiPort = 9000
	expected.MetricsPort = 9001
	expected.DatabasePath = "/var/lib/metatracer"
	expected.PublicBaseURL = "https://meta.example.com"
	expected.ShutdownTimeout = "10s"
	expected.Tracing = true
	assert.Equal(t, expected, cfg)
	timeout, err := cfg.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)
}

func TestLoadConfigSectionWithPlugins(t *testing.T) {
	resetGlobalConfig()
	dataDir := t.TempDir()
	tmpFile := writeConfigFile(t, `
config:
  apiPort: 8123
database:
  blob:
    plugin: badger
    badger:
      gc: false
  metadata:
    plugin: sqlite
    sqlite:
      data-dir: "`+dataDir+`"
`)
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			"sqlite",
			"data-dir",
			"",
		)
	})
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(8123), cfg.ApiPort)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoadConfigUnknownPluginOption(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfigFile(t, `
database:
  metadata:
    plugin: sqlite
    sqlite:
      no-such-option: true
`)
	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error processing plugin config")
}

func TestLoadConfigInvalidYaml(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfigFile(t, "apiPort: [not a port\n")
	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadEnvironment(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	t.Setenv("METATRACER_API_PORT", "8500")
	t.Setenv("METATRACER_DATABASE_BLOB_PLUGIN", "gcs")
	t.Setenv("PUBLIC_BASE_URL", "https://objects.example.com")
	t.Setenv("PRIVATE_KEY", keyHex)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint(8500), cfg.ApiPort)
	assert.Equal(t, "gcs", cfg.BlobPlugin)
	assert.Equal(t, "https://objects.example.com", cfg.PublicBaseURL)
	parsed, err := cfg.ParsePrivateKey()
	require.NoError(t, err)
	assert.Equal(
		t,
		crypto.PubkeyToAddress(key.PublicKey),
		crypto.PubkeyToAddress(parsed.PublicKey),
	)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "shutdown timeout", env: "METATRACER_SHUTDOWN_TIMEOUT", val: "soon"},
		{name: "private key", env: "PRIVATE_KEY", val: "0xnothex"},
		{name: "port", env: "METATRACER_API_PORT", val: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalConfig()
			t.Setenv("HOME", t.TempDir())
			t.Setenv(tt.env, tt.val)
			_, err := LoadConfig("")
			require.Error(t, err)
		})
	}
}

func TestParsePrivateKeyEmpty(t *testing.T) {
	cfg := defaultConfig()
	key, err := cfg.ParsePrivateKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
