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

package plugin

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPlugin(t *testing.T) {
	opts := registerTestPlugin(t, "start")
	opts.dir = "/start"

	p, err := StartPlugin(PluginTypeMetadata, "start", nil, nil)
	require.NoError(t, err)
	tp, ok := p.(*testPlugin)
	require.True(t, ok)
	assert.True(t, tp.started)
	assert.Equal(t, "/start", tp.opts.dir)
}

type configurablePlugin struct {
	testPlugin
	logger       *slog.Logger
	promRegistry prometheus.Registerer
}

func (p *configurablePlugin) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	p.logger = logger
	p.promRegistry = promRegistry
}

func TestStartPluginConfigures(t *testing.T) {
	Register(PluginEntry{
		Type: PluginTypeBlob,
		Name: "configurable",
		NewFromOptionsFunc: func() Plugin {
			return &configurablePlugin{}
		},
	})
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	p, err := StartPlugin(PluginTypeBlob, "configurable", logger, reg)
	require.NoError(t, err)
	cp, ok := p.(*configurablePlugin)
	require.True(t, ok)
	assert.True(t, cp.started)
	assert.Same(t, logger, cp.logger)
	assert.Equal(t, reg, cp.promRegistry)
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := StartPlugin(PluginTypeBlob, "does-not-exist", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob plugin 'does-not-exist' not found")
}

func TestStartPluginError(t *testing.T) {
	sentinel := errors.New("cannot start")
	Register(PluginEntry{
		Type: PluginTypeBlob,
		Name: "broken",
		NewFromOptionsFunc: func() Plugin {
			return NewErrorPlugin(sentinel)
		},
	})
	_, err := StartPlugin(PluginTypeBlob, "broken", nil, nil)
	require.ErrorIs(t, err, sentinel)
}

func TestSetPluginOption(t *testing.T) {
	opts := registerTestPlugin(t, "setopt")

	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "data-dir", "/x"))
	assert.Equal(t, "/x", opts.dir)
	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "enabled", true))
	assert.True(t, opts.enabled)
	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "max-conns", 9))
	assert.Equal(t, 9, opts.conns)
	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "cache-size", 10))
	assert.Equal(t, uint64(10), opts.size)
	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "cache-size", uint64(11)))
	assert.Equal(t, uint64(11), opts.size)

	// Unknown options are ignored
	require.NoError(t, SetPluginOption(PluginTypeMetadata, "setopt", "nope", 1))
}

func TestSetPluginOptionErrors(t *testing.T) {
	registerTestPlugin(t, "setopterr")

	require.Error(t, SetPluginOption(PluginTypeMetadata, "missing", "data-dir", "/x"))
	require.Error(t, SetPluginOption(PluginTypeMetadata, "setopterr", "data-dir", 1))
	require.Error(t, SetPluginOption(PluginTypeMetadata, "setopterr", "enabled", "true"))
	require.Error(t, SetPluginOption(PluginTypeMetadata, "setopterr", "max-conns", uint64(1)))
	require.Error(t, SetPluginOption(PluginTypeMetadata, "setopterr", "cache-size", -1))
}

func TestSetValueBadDestination(t *testing.T) {
	var wrong int
	opt := PluginOption{Name: "x", Type: PluginOptionTypeString, Dest: &wrong}
	require.Error(t, opt.setValue("v"))

	opt = PluginOption{Name: "x", Type: PluginOptionTypeString}
	require.Error(t, opt.setValue("v"))

	var nilDest *string
	opt = PluginOption{Name: "x", Type: PluginOptionTypeString, Dest: nilDest}
	require.Error(t, opt.setValue("v"))

	opt = PluginOption{Name: "x", Type: PluginOptionType(42), Dest: &wrong}
	require.Error(t, opt.setValue(1))
}
