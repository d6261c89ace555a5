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

package sqlite_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/database/models"
	"github.com/blinklabs-io/metatracer/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/metatracer/database/types"
)

func newTestStore(t *testing.T, dataDir string) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testRecord(id byte, version uint64) (*models.Record, *models.RecordChange) {
	recordID := bytes.Repeat([]byte{id}, 32)
	owner := bytes.Repeat([]byte{0xa1}, 20)
	rec := &models.Record{
		RecordID:    recordID,
		ContentHash: bytes.Repeat([]byte{byte(version)}, 32),
		URI:         "ipfs://v" + string(rune('0'+version)),
		Version:     version,
		Owner:       owner,
		UpdatedBy:   owner,
		CreatedAt:   1000,
		UpdatedAt:   1000 + int64(version),
	}
	change := &models.RecordChange{
		RecordID:    recordID,
		ContentHash: rec.ContentHash,
		Caller:      owner,
		TxHash:      bytes.Repeat([]byte{id, byte(version)}, 16),
		URI:         rec.URI,
		Version:     version,
		Timestamp:   rec.UpdatedAt,
		Kind:        1,
	}
	return rec, change
}

func TestCreateAndGetRecord(t *testing.T) {
	store := newTestStore(t, "")
	rec, change := testRecord(0x01, 1)
	require.NoError(t, store.CreateRecord(rec, change, nil))

	got, err := store.GetRecord(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Equal(t, rec.ContentHash, got.ContentHash)
	assert.Equal(t, rec.URI, got.URI)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, int64(1001), got.UpdatedAt)

	records, err := store.GetRecords(nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGetRecordNotFound(t *testing.T) {
	store := newTestStore(t, "")
	_, err := store.GetRecord(bytes.Repeat([]byte{0xff}, 32), nil)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestCreateRecordExists(t *testing.T) {
	store := newTestStore(t, "")
	rec, change := testRecord(0x02, 1)
	require.NoError(t, store.CreateRecord(rec, change, nil))
	rec2, change2 := testRecord(0x02, 1)
	err := store.CreateRecord(rec2, change2, nil)
	require.ErrorIs(t, err, types.ErrRecordExists)
	changes, err := store.GetRecordChanges(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestUpdateRecord(t *testing.T) {
	store := newTestStore(t, "")
	rec, change := testRecord(0x03, 1)
	require.NoError(t, store.CreateRecord(rec, change, nil))
	for v := uint64(2); v <= 4; v++ {
		upd, updChange := testRecord(0x03, v)
		updChange.Kind = 2
		require.NoError(t, store.UpdateRecord(upd, updChange, nil))
	}
	got, err := store.GetRecord(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Version)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, int64(1004), got.UpdatedAt)

	changes, err := store.GetRecordChanges(rec.RecordID, nil)
	require.NoError(t, err)
	require.Len(t, changes, 4)
	for i, c := range changes {
		assert.Equal(t, uint64(i+1), c.Version)
	}
}

func TestUpdateRecordVersionConflict(t *testing.T) {
	store := newTestStore(t, "")
	rec, change := testRecord(0x04, 1)
	require.NoError(t, store.CreateRecord(rec, change, nil))
	// Skipping a version must fail and leave history untouched
	upd, updChange := testRecord(0x04, 3)
	err := store.UpdateRecord(upd, updChange, nil)
	require.ErrorIs(t, err, types.ErrRecordVersionConflict)
	got, err := store.GetRecord(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Version)
	changes, err := store.GetRecordChanges(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestTransactionRollback(t *testing.T) {
	store := newTestStore(t, "")
	rec, change := testRecord(0x05, 1)
	txn := store.Transaction()
	require.NoError(t, txn.Error)
	require.NoError(t, store.CreateRecord(rec, change, txn))
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, txn.Rollback().Error)

	_, err := store.GetRecord(rec.RecordID, nil)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t, "")
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	require.NoError(t, store.SetCommitTimestamp(100, nil))
	require.NoError(t, store.SetCommitTimestamp(200, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(200), ts)
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	store1 := newTestStore(t, "")
	store2 := newTestStore(t, "")
	rec, change := testRecord(0x06, 1)
	require.NoError(t, store1.CreateRecord(rec, change, nil))
	_, err := store2.GetRecord(rec.RecordID, nil)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestPersistence(t *testing.T) {
	dataDir := t.TempDir()
	store, err := sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	rec, change := testRecord(0x07, 1)
	require.NoError(t, store.CreateRecord(rec, change, nil))
	require.NoError(t, store.SetCommitTimestamp(7, nil))
	require.NoError(t, store.Close())

	store = newTestStore(t, dataDir)
	got, err := store.GetRecord(rec.RecordID, nil)
	require.NoError(t, err)
	assert.Equal(t, rec.URI, got.URI)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(7), ts)
}
