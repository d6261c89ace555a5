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

// Package gormstore holds the record queries shared by the gorm-backed
// metadata plugins
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/metatracer/database/models"
	"github.com/blinklabs-io/metatracer/database/types"
)

const commitTimestampRowId = 1

// Store implements the record operations of a metadata store on top of a
// gorm handle. Methods taking a txn use it when non-nil and otherwise run
// against the store handle, in a transaction where more than one statement
// is involved.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New wraps db, enables tracing and applies the schema migrations
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		db:     db,
		logger: logger,
	}
	// Configure tracing for GORM
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			fmt.Sprintf("creating table: %#v", model),
			"component", "database",
		)
		if err := db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DB returns the underlying GORM database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction begins a new database transaction
func (s *Store) Transaction() *gorm.DB {
	return s.db.Begin()
}

// AutoMigrate wraps the gorm AutoMigrate
func (s *Store) AutoMigrate(dst ...any) error {
	return s.db.AutoMigrate(dst...)
}

func (s *Store) withTxn(txn *gorm.DB, fn func(*gorm.DB) error) error {
	if txn != nil {
		return fn(txn)
	}
	return s.db.Transaction(fn)
}

func (s *Store) resolveDB(txn *gorm.DB) *gorm.DB {
	if txn != nil {
		return txn
	}
	return s.db
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmpCommitTimestamp models.CommitTimestamp
	result := s.db.First(&tmpCommitTimestamp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpCommitTimestamp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn *gorm.DB) error {
	tmpCommitTimestamp := models.CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	result := s.resolveDB(txn).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpCommitTimestamp)
	return result.Error
}

// GetRecords returns every stored record
func (s *Store) GetRecords(txn *gorm.DB) ([]models.Record, error) {
	var ret []models.Record
	result := s.resolveDB(txn).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetRecord returns the record with the given registry ID
func (s *Store) GetRecord(
	recordID []byte,
	txn *gorm.DB,
) (*models.Record, error) {
	var ret models.Record
	result := s.resolveDB(txn).
		Where("record_id = ?", recordID).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// CreateRecord inserts a record together with its first change
func (s *Store) CreateRecord(
	rec *models.Record,
	change *models.RecordChange,
	txn *gorm.DB,
) error {
	return s.withTxn(txn, func(db *gorm.DB) error {
		var count int64
		result := db.Model(&models.Record{}).
			Where("record_id = ?", rec.RecordID).
			Count(&count)
		if result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return types.ErrRecordExists
		}
		if result := db.Create(rec); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return types.ErrRecordExists
			}
			return result.Error
		}
		if result := db.Create(change); result.Error != nil {
			return result.Error
		}
		return nil
	})
}

// UpdateRecord replaces the mutable fields of a record whose stored version
// is one less than rec.Version and appends the change
func (s *Store) UpdateRecord(
	rec *models.Record,
	change *models.RecordChange,
	txn *gorm.DB,
) error {
	return s.withTxn(txn, func(db *gorm.DB) error {
		result := db.Model(&models.Record{}).
			Where("record_id = ? AND version = ?", rec.RecordID, rec.Version-1).
			Updates(map[string]any{
				"content_hash": rec.ContentHash,
				"uri":          rec.URI,
				"version":      rec.Version,
				"updated_at":   rec.UpdatedAt,
				"updated_by":   rec.UpdatedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrRecordVersionConflict
		}
		if result := db.Create(change); result.Error != nil {
			return result.Error
		}
		return nil
	})
}

// GetRecordChanges returns the changes for a record in version order
func (s *Store) GetRecordChanges(
	recordID []byte,
	txn *gorm.DB,
) ([]models.RecordChange, error) {
	var ret []models.RecordChange
	result := s.resolveDB(txn).
		Where("record_id = ?", recordID).
		Order("version").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
