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

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/blinklabs-io/metatracer/database/sops"
	"github.com/blinklabs-io/metatracer/database/types"
)

const startupTimeout = 30 * time.Second

// BlobStoreGCS stores data in a Google Cloud Storage bucket.
type BlobStoreGCS struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	metrics         *blobMetrics
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	prefix          string
	credentialsFile string
	sealed          bool
}

// New creates a new GCS-backed blob store from a gcs://bucket[/prefix] URL.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	path, ok := strings.CutPrefix(dataDir, "gcs://")
	bucketName, keyPrefix, _ := strings.Cut(path, "/")
	if !ok || bucketName == "" {
		return nil, errors.New(
			"gcs blob: bucket not set (expected dataDir='gcs://<bucket>[/prefix]')",
		)
	}

	return NewWithOptions(
		WithBucket(bucketName),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a new GCS-backed blob store using options.
func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	db := &BlobStoreGCS{}

	// Apply options
	for _, opt := range opts {
		opt(db)
	}

	// Set defaults
	if db.logger == nil {
		db.logger = newLogger(nil)
	}
	if p := strings.Trim(db.prefix, "/"); p != "" {
		db.prefix = p + "/"
	} else {
		db.prefix = ""
	}

	return db, nil
}

// ValidateCredentials checks that a credentials file, if given, exists
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file: %w", err)
	}
	return nil
}

// Close closes the GCS client.
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.bucket = nil
	return err
}

// Returns the GCS client.
func (d *BlobStoreGCS) Client() *storage.Client {
	return d.client
}

// Returns the bucket handle.
func (d *BlobStoreGCS) Bucket() *storage.BucketHandle {
	return d.bucket
}

// Start implements the plugin.Plugin interface.
func (d *BlobStoreGCS) Start() error {
	// Validate required fields
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	clientOpts := []option.ClientOption{
		storage.WithDisabledClientMetrics(),
		option.WithLogger(d.logger),
	}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}

	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}

	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	if d.promRegistry != nil && d.metrics == nil {
		d.registerBlobMetrics()
	}
	d.sealed = sops.Configured()
	if !d.sealed {
		d.logger.Warn(
			"no sops master keys configured, GCS commit timestamp is stored in plaintext",
		)
	}
	d.logger.Info(
		"gcs blob store started",
		"bucket", d.bucketName,
		"prefix", d.prefix,
	)
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

func (d *BlobStoreGCS) object(key string) *storage.ObjectHandle {
	return d.bucket.Object(d.prefix + key)
}

// Get reads the object at key
func (d *BlobStoreGCS) Get(ctx context.Context, key string) ([]byte, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	r, err := d.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			d.observe("get", "not_found", 0)
			return nil, types.ErrBlobKeyNotFound
		}
		d.observe("get", "error", 0)
		d.logError("read", key, err)
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		d.observe("get", "error", 0)
		d.logError("read", key, err)
		return nil, err
	}
	d.observe("get", "ok", len(data))
	return data, nil
}

// Set writes val to the object at key
func (d *BlobStoreGCS) Set(ctx context.Context, key string, val []byte) error {
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	w := d.object(key).NewWriter(ctx)
	if _, err := w.Write(val); err != nil {
		_ = w.Close()
		d.observe("set", "error", 0)
		d.logError("write", key, err)
		return err
	}
	if err := w.Close(); err != nil {
		d.observe("set", "error", 0)
		d.logError("close writer", key, err)
		return err
	}
	d.observe("set", "ok", len(val))
	return nil
}

// Delete removes the object at key
func (d *BlobStoreGCS) Delete(ctx context.Context, key string) error {
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	err := d.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		d.observe("delete", "error", 0)
		d.logError("delete", key, err)
		return err
	}
	d.observe("delete", "ok", 0)
	return nil
}

// Keys lists the object names under prefix in sorted order
func (d *BlobStoreGCS) Keys(ctx context.Context, prefix string) ([]string, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	it := d.bucket.Objects(ctx, &storage.Query{Prefix: d.prefix + prefix})
	keys := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			d.observe("keys", "error", 0)
			return nil, err
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, d.prefix))
	}
	sort.Strings(keys)
	d.observe("keys", "ok", 0)
	return keys, nil
}

// Configure implements the plugin.Configurable interface
func (d *BlobStoreGCS) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	if logger != nil {
		d.logger = newLogger(logger)
	}
	if promRegistry != nil {
		d.promRegistry = promRegistry
	}
}
