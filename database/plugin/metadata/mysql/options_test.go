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

package mysql

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(13306),
		WithUser("meta"),
		WithPassword("secret"),
		WithDatabase("records"),
		WithSSLMode("skip-verify"),
		WithTimeZone("UTC"),
		WithMaxOpenConns(7),
		WithLogger(logger),
		WithPromRegistry(reg),
	)
	require.NoError(t, err)
	assert.Equal(t, "db.local", m.host)
	assert.Equal(t, uint(13306), m.port)
	assert.Equal(t, "meta", m.user)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "records", m.database)
	assert.Equal(t, "skip-verify", m.sslMode)
	assert.Equal(t, 7, m.maxOpenConns)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, reg, m.promRegistry)
}

func TestDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "metatracer", m.database)
	assert.Equal(t, 100, m.maxOpenConns)
}

func TestConnStringFromOptions(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db"),
		WithPort(3307),
		WithUser("u"),
		WithPassword("p"),
		WithDatabase("meta"),
	)
	require.NoError(t, err)
	dsn, dbName := m.connString()
	assert.Equal(t, "meta", dbName)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "u", cfg.User)
	assert.Equal(t, "p", cfg.Passwd)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Equal(t, "meta", cfg.DBName)
	assert.True(t, cfg.ParseTime)
}

func TestConnStringFromDSN(t *testing.T) {
	m, err := NewWithOptions(
		WithDatabase("ignored"),
		WithDSN("user:pw@tcp(host:3306)/fromdsn?parseTime=true"),
	)
	require.NoError(t, err)
	dsn, dbName := m.connString()
	assert.Equal(t, "user:pw@tcp(host:3306)/fromdsn?parseTime=true", dsn)
	assert.Equal(t, "fromdsn", dbName)
}

func TestCloseWithoutStart(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.NoError(t, m.Close())
}
