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

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/metatracer/database/sops"
	"github.com/blinklabs-io/metatracer/database/types"
)

const defaultTimeout = 60 * time.Second

// BlobStoreS3 stores data in an AWS S3 bucket
type BlobStoreS3 struct {
	promRegistry   prometheus.Registerer
	logger         *S3Logger
	metrics        *blobMetrics
	client         *s3.Client
	bucket         string
	prefix         string
	region         string
	endpoint       string
	timeout        time.Duration
	forcePathStyle bool
	sealed         bool
}

// New creates a new S3-backed blob store and dataDir must be "s3://bucket" or "s3://bucket/prefix"
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	bucket, keyPrefix, err := ParseURL(dataDir)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// ParseURL splits an s3://bucket[/prefix] URL into its bucket and key prefix.
// A non-empty prefix always ends in a slash.
func ParseURL(dataDir string) (string, string, error) {
	path, ok := strings.CutPrefix(dataDir, "s3://")
	if !ok {
		return "", "", errors.New(
			"s3 blob: expected dataDir='s3://<bucket>[/prefix]'",
		)
	}
	bucket, keyPrefix, _ := strings.Cut(path, "/")
	if bucket == "" {
		return "", "", errors.New("s3 blob: invalid S3 path (missing bucket)")
	}
	return bucket, normalizePrefix(keyPrefix), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// NewWithOptions creates a new S3-backed blob store using options
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	db := &BlobStoreS3{}
	for _, opt := range opts {
		opt(db)
	}
	// Set defaults (no side effects)
	if db.logger == nil {
		db.logger = NewS3Logger(nil)
	}
	db.prefix = normalizePrefix(db.prefix)
	// Note: AWS config loading and validation happen in Start()
	return db, nil
}

func (d *BlobStoreS3) opContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	timeout := d.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	ctx, cancel := d.opContext(context.Background())
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithLogger(d.logger),
		config.WithClientLogMode(aws.LogRetries),
	)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	// Override region if specified
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
		}
		o.UsePathStyle = d.forcePathStyle
	})
	if d.promRegistry != nil && d.metrics == nil {
		d.registerBlobMetrics()
	}
	d.sealed = sops.Configured()
	if !d.sealed {
		d.logger.Warnf(
			"no sops master keys configured, S3 commit timestamp is stored in plaintext",
		)
	}
	d.logger.Infof("s3 blob store using bucket %q prefix %q", d.bucket, d.prefix)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreS3) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

// Close implements the BlobStore interface
func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

// Client returns the S3 client
func (d *BlobStoreS3) Client() *s3.Client {
	return d.client
}

// Bucket returns the bucket name
func (d *BlobStoreS3) Bucket() string {
	return d.bucket
}

// fullKey returns the S3 key with the configured prefix
func (d *BlobStoreS3) fullKey(key string) string {
	return d.prefix + key
}

// Get reads the value at key
func (d *BlobStoreS3) Get(ctx context.Context, key string) ([]byte, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			d.observe("get", "not_found", 0)
			return nil, types.ErrBlobKeyNotFound
		}
		d.observe("get", "error", 0)
		d.logger.Errorf(key, "s3 get failed", err)
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		d.observe("get", "error", 0)
		d.logger.Errorf(key, "s3 read failed", err)
		return nil, err
	}
	d.observe("get", "ok", len(data))
	d.logger.Debugf("s3 get %q ok (%d bytes)", key, len(data))
	return data, nil
}

// Set writes val to key
func (d *BlobStoreS3) Set(ctx context.Context, key string, val []byte) error {
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
		Body:   bytes.NewReader(val),
	})
	if err != nil {
		d.observe("set", "error", 0)
		d.logger.Errorf(key, "s3 put failed", err)
		return err
	}
	d.observe("set", "ok", len(val))
	d.logger.Debugf("s3 put %q ok (%d bytes)", key, len(val))
	return nil
}

// Delete removes key
func (d *BlobStoreS3) Delete(ctx context.Context, key string) error {
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil && !isS3NotFound(err) {
		d.observe("delete", "error", 0)
		d.logger.Errorf(key, "s3 delete failed", err)
		return err
	}
	d.observe("delete", "ok", 0)
	return nil
}

// Keys lists the keys under prefix. S3 returns keys in lexical order.
func (d *BlobStoreS3) Keys(ctx context.Context, prefix string) ([]string, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
	}
	if fullPrefix := d.fullKey(prefix); fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}
	paginator := s3.NewListObjectsV2Paginator(d.client, input)
	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			d.observe("keys", "error", 0)
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), d.prefix))
		}
	}
	d.observe("keys", "ok", 0)
	return keys, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// Configure implements the plugin.Configurable interface
func (d *BlobStoreS3) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	if logger != nil {
		d.logger = NewS3Logger(logger)
	}
	if promRegistry != nil {
		d.promRegistry = promRegistry
	}
}
