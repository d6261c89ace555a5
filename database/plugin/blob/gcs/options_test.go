// Copyright 2025 Blink Labs Software
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

package gcs

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogger(t *testing.T) {
	b := &BlobStoreGCS{}
	WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))(b)
	assert.NotNil(t, b.logger)
}

func TestWithPromRegistry(t *testing.T) {
	b := &BlobStoreGCS{}
	registry := prometheus.NewRegistry()
	WithPromRegistry(registry)(b)
	assert.Equal(t, registry, b.promRegistry)
}

func TestWithBucket(t *testing.T) {
	b := &BlobStoreGCS{}
	WithBucket("test-bucket")(b)
	assert.Equal(t, "test-bucket", b.bucketName)
}

func TestPrefixNormalized(t *testing.T) {
	b, err := NewWithOptions(WithBucket("b"), WithPrefix("/data"))
	require.NoError(t, err)
	assert.Equal(t, "data/", b.prefix)

	b, err = NewWithOptions(WithBucket("b"), WithPrefix("/"))
	require.NoError(t, err)
	assert.Empty(t, b.prefix)
}

func TestWithCredentialsFile(t *testing.T) {
	b := &BlobStoreGCS{}
	WithCredentialsFile("/tmp/creds.json")(b)
	assert.Equal(t, "/tmp/creds.json", b.credentialsFile)
}

func TestObserve(t *testing.T) {
	b, err := NewWithOptions(WithPromRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	b.observe("get", "ok", 4)
	b.registerBlobMetrics()
	b.observe("get", "ok", 4)
	assert.InDelta(t, 1, testutil.ToFloat64(b.metrics.ops.WithLabelValues("get", "ok")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(b.metrics.bytes.WithLabelValues("get")), 0)
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewWithOptions(
		WithBucket("records"),
		WithPrefix("meta"),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	require.NoError(t, err)
	b.logError("read", "objects/a/v1.json", errors.New("boom"))
	out := buf.String()
	assert.Contains(t, out, `"msg":"gcs read failed"`)
	assert.Contains(t, out, `"plugin":"gcs"`)
	assert.Contains(t, out, `"bucket":"records"`)
	assert.Contains(t, out, `"key":"meta/objects/a/v1.json"`)
	assert.Contains(t, out, `"error":"boom"`)
}
