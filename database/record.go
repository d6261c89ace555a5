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
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/metatracer/database/models"
	"github.com/blinklabs-io/metatracer/database/types"
	"github.com/blinklabs-io/metatracer/registry"
)

// RecordStore persists registry records in the metadata store
type RecordStore struct {
	db *Database
}

var _ registry.Store = (*RecordStore)(nil)

func (s *RecordStore) LoadRecords(ctx context.Context) ([]registry.Record, error) {
	rows, err := s.db.Metadata().GetRecords(
		s.db.Metadata().DB().WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	ret := make([]registry.Record, 0, len(rows))
	for i := range rows {
		ret = append(ret, recordFromModel(&rows[i]))
	}
	return ret, nil
}

func (s *RecordStore) CreateRecord(
	ctx context.Context,
	rec registry.Record,
	change registry.Change,
) error {
	err := s.db.Transaction(ctx).Do(func(txn *Txn) error {
		return s.db.Metadata().CreateRecord(
			recordToModel(rec),
			changeToModel(change),
			txn.Metadata(),
		)
	})
	if errors.Is(err, types.ErrRecordExists) {
		return fmt.Errorf("%w: %s", registry.ErrAlreadyExists, rec.ID.Hex())
	}
	return err
}

func (s *RecordStore) UpdateRecord(
	ctx context.Context,
	rec registry.Record,
	change registry.Change,
) error {
	return s.db.Transaction(ctx).Do(func(txn *Txn) error {
		err := s.db.Metadata().UpdateRecord(
			recordToModel(rec),
			changeToModel(change),
			txn.Metadata(),
		)
		if errors.Is(err, types.ErrRecordVersionConflict) {
			return fmt.Errorf(
				"%w: record %s, writing version %d",
				err,
				rec.ID.Hex(),
				rec.Version,
			)
		}
		return err
	})
}

func (s *RecordStore) RecordHistory(
	ctx context.Context,
	id registry.RecordID,
) ([]registry.Change, error) {
	rows, err := s.db.Metadata().GetRecordChanges(
		id.Bytes(),
		s.db.Metadata().DB().WithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	ret := make([]registry.Change, 0, len(rows))
	for i := range rows {
		ret = append(ret, changeFromModel(&rows[i]))
	}
	return ret, nil
}

func recordToModel(rec registry.Record) *models.Record {
	return &models.Record{
		RecordID:    rec.ID.Bytes(),
		ContentHash: rec.ContentHash.Bytes(),
		Owner:       rec.Owner.Bytes(),
		UpdatedBy:   rec.UpdatedBy.Bytes(),
		URI:         rec.URI,
		Version:     rec.Version,
		CreatedAt:   rec.CreatedAt.UnixNano(),
		UpdatedAt:   rec.UpdatedAt.UnixNano(),
	}
}

func recordFromModel(m *models.Record) registry.Record {
	return registry.Record{
		ID:          common.BytesToHash(m.RecordID),
		ContentHash: common.BytesToHash(m.ContentHash),
		URI:         m.URI,
		Version:     m.Version,
		Owner:       common.BytesToAddress(m.Owner),
		CreatedAt:   time.Unix(0, m.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, m.UpdatedAt).UTC(),
		UpdatedBy:   common.BytesToAddress(m.UpdatedBy),
	}
}

func changeToModel(c registry.Change) *models.RecordChange {
	return &models.RecordChange{
		RecordID:    c.RecordID.Bytes(),
		ContentHash: c.ContentHash.Bytes(),
		Caller:      c.Caller.Bytes(),
		TxHash:      c.TxHash.Bytes(),
		URI:         c.URI,
		Version:     c.Version,
		Timestamp:   c.Timestamp.UnixNano(),
		Kind:        uint8(c.Kind),
	}
}

func changeFromModel(m *models.RecordChange) registry.Change {
	return registry.Change{
		Kind:        registry.ChangeKind(m.Kind),
		RecordID:    common.BytesToHash(m.RecordID),
		ContentHash: common.BytesToHash(m.ContentHash),
		URI:         m.URI,
		Version:     m.Version,
		Caller:      common.BytesToAddress(m.Caller),
		Timestamp:   time.Unix(0, m.Timestamp).UTC(),
		TxHash:      common.BytesToHash(m.TxHash),
	}
}
