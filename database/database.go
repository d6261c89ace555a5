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

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/metatracer/database/plugin"
	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/plugin/metadata"

	// Register storage plugins
	_ "github.com/blinklabs-io/metatracer/database/plugin/blob/aws"
	_ "github.com/blinklabs-io/metatracer/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/metatracer/database/plugin/blob/gcs"
	_ "github.com/blinklabs-io/metatracer/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/metatracer/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/metatracer/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config selects and configures the storage plugins
type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	// DataDir overrides the data-dir option of the selected plugins when
	// DataDirSet is true. An empty DataDir selects in-memory storage.
	DataDir    string
	DataDirSet bool
}

type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	config   *Config
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// Config returns the config used to open the database
func (d *Database) Config() *Config {
	return d.config
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(ctx context.Context) *Txn {
	return NewTxn(ctx, d)
}

// RecordStore returns a registry store backed by this database
func (d *Database) RecordStore() *RecordStore {
	return &RecordStore{db: d}
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New opens the configured metadata and blob plugins. A nil config opens the
// default plugins with their current options.
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		config.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.BlobPlugin == "" {
		config.BlobPlugin = DefaultBlobPlugin
	}
	if config.MetadataPlugin == "" {
		config.MetadataPlugin = DefaultMetadataPlugin
	}
	logger := config.Logger.With("component", "database")
	if config.DataDirSet {
		if err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			config.MetadataPlugin,
			"data-dir",
			config.DataDir,
		); err != nil {
			return nil, err
		}
		if err := plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			config.BlobPlugin,
			"data-dir",
			config.DataDir,
		); err != nil {
			return nil, err
		}
	}
	metadataDb, err := metadata.New(
		config.MetadataPlugin,
		config.Logger,
		config.PromRegistry,
	)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	blobDb, err := blob.New(
		config.BlobPlugin,
		config.Logger,
		config.PromRegistry,
	)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		config:   config,
	}
	logger.Info(
		"opened database",
		"metadata", config.MetadataPlugin,
		"blob", config.BlobPlugin,
	)
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
