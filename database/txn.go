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
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/blinklabs-io/metatracer/database/types"
)

// Txn wraps a metadata transaction and stamps both stores with a shared
// commit timestamp when it commits. Blob writes made inside Do are not
// transactional and are not undone on rollback.
type Txn struct {
	ctx         context.Context
	db          *Database
	metadataTxn *gorm.DB
	lock        sync.Mutex
	finished    bool
}

func NewTxn(ctx context.Context, db *Database) *Txn {
	t := &Txn{ctx: ctx, db: db}
	if ms := db.Metadata(); ms != nil {
		t.metadataTxn = ms.Transaction()
		if t.metadataTxn == nil {
			db.logger.Warn(
				"metadata transaction is nil; callers must nil-check txn.Metadata()",
			)
		} else {
			t.metadataTxn = t.metadataTxn.WithContext(ctx)
		}
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying metadata transaction handle
func (t *Txn) Metadata() *gorm.DB {
	return t.metadataTxn
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit records the commit timestamp in the blob store, then in the
// metadata transaction, and commits the metadata transaction
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if t.metadataTxn == nil {
		t.finished = true
		return types.ErrNoStoreAvailable
	}
	commitTimestamp := time.Now().UnixMilli()
	if err := t.db.setBlobCommitTimestamp(t.ctx, commitTimestamp); err != nil {
		_ = t.rollback()
		return fmt.Errorf("failed to update blob commit timestamp: %w", err)
	}
	if err := t.db.Metadata().SetCommitTimestamp(commitTimestamp, t.metadataTxn); err != nil {
		_ = t.rollback()
		return fmt.Errorf(
			"failed to update metadata commit timestamp: %w",
			err,
		)
	}
	if err := t.metadataTxn.Commit().Error; err != nil {
		t.db.logger.Error(
			"partial commit: blob timestamp written, metadata failed",
			"error", err,
		)
		t.finished = true
		return fmt.Errorf("metadata commit failed: %w", err)
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.metadataTxn == nil {
		return nil
	}
	if err := t.metadataTxn.Rollback().Error; err != nil &&
		!errors.Is(err, gorm.ErrInvalidTransaction) {
		return fmt.Errorf("metadata rollback: %w", err)
	}
	return nil
}

// Release releases transaction resources. It is equivalent to Rollback and
// is safe to defer after Commit. Errors are logged but not returned.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
		)
	}
}
