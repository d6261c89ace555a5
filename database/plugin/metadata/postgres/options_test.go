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

package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(15432),
		WithUser("meta"),
		WithPassword("secret"),
		WithDatabase("metatracer"),
		WithSSLMode("require"),
		WithTimeZone("Europe/Berlin"),
		WithMaxOpenConns(5),
		WithLogger(logger),
		WithPromRegistry(reg),
	)
	require.NoError(t, err)
	assert.Equal(t, "db.local", m.host)
	assert.Equal(t, uint(15432), m.port)
	assert.Equal(t, "meta", m.user)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "metatracer", m.database)
	assert.Equal(t, "require", m.sslMode)
	assert.Equal(t, "Europe/Berlin", m.timeZone)
	assert.Equal(t, 5, m.maxOpenConns)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, reg, m.promRegistry)
}

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(5432), m.port)
	assert.Equal(t, "postgres", m.user)
	assert.Equal(t, "postgres", m.database)
	assert.Equal(t, "disable", m.sslMode)
	assert.Equal(t, "UTC", m.timeZone)
	assert.Equal(t, 100, m.maxOpenConns)
	assert.NotNil(t, m.logger)
}

func TestConnString(t *testing.T) {
	tests := []struct {
		name     string
		opts     []PostgresOptionFunc
		expected string
	}{
		{
			name:     "defaults",
			expected: "host=localhost user=postgres password= dbname=postgres port=5432 sslmode=disable TimeZone=UTC",
		},
		{
			name: "custom",
			opts: []PostgresOptionFunc{
				WithHost("pg"),
				WithPort(6543),
				WithPassword("pw"),
				WithDatabase("meta"),
			},
			expected: "host=pg user=postgres password=pw dbname=meta port=6543 sslmode=disable TimeZone=UTC",
		},
		{
			name: "dsn overrides",
			opts: []PostgresOptionFunc{
				WithHost("ignored"),
				WithDSN("  postgres://u:p@h:1/db  "),
			},
			expected: "postgres://u:p@h:1/db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewWithOptions(tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.connString())
		})
	}
}

func TestCloseWithoutStart(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.NoError(t, m.Close())
}
