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

package database_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"github.com/blinklabs-io/metatracer/database"
	"github.com/blinklabs-io/metatracer/database/models"
	"github.com/blinklabs-io/metatracer/registry"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir:    dataDir,
		DataDirSet: true,
	})
	require.NoError(t, err)
	return db
}

func testRecord(id common.Hash, version uint64, at time.Time) registry.Record {
	return registry.Record{
		ID:          id,
		ContentHash: common.HexToHash("0xaa"),
		URI:         "ipfs://a",
		Version:     version,
		Owner:       alice,
		CreatedAt:   at,
		UpdatedAt:   at,
		UpdatedBy:   alice,
	}
}

func testChange(rec registry.Record, kind registry.ChangeKind) registry.Change {
	return registry.Change{
		Kind:        kind,
		RecordID:    rec.ID,
		ContentHash: rec.ContentHash,
		URI:         rec.URI,
		Version:     rec.Version,
		Caller:      rec.UpdatedBy,
		Timestamp:   rec.UpdatedAt,
		TxHash:      common.HexToHash("0x1234"),
	}
}

func TestNewInMemory(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	require.NotNil(t, db.Blob())
	require.NotNil(t, db.Metadata())
	assert.Equal(t, database.DefaultBlobPlugin, db.Config().BlobPlugin)
	assert.Equal(t, database.DefaultMetadataPlugin, db.Config().MetadataPlugin)
}

func TestNewUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{
		MetadataPlugin: "does-not-exist",
	})
	require.Error(t, err)
}

func TestRecordStoreCreateAndLoad(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	store := db.RecordStore()
	ctx := context.Background()

	at := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)
	rec := testRecord(common.HexToHash("0x01"), 1, at)
	require.NoError(t, store.CreateRecord(ctx, rec, testChange(rec, registry.ChangeCreated)))

	records, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestRecordStoreCreateDuplicate(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	store := db.RecordStore()
	ctx := context.Background()

	rec := testRecord(common.HexToHash("0x01"), 1, time.Unix(100, 0).UTC())
	require.NoError(t, store.CreateRecord(ctx, rec, testChange(rec, registry.ChangeCreated)))
	err := store.CreateRecord(ctx, rec, testChange(rec, registry.ChangeCreated))
	require.ErrorIs(t, err, registry.ErrAlreadyExists)
}

func TestRecordStoreUpdateAndHistory(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	store := db.RecordStore()
	ctx := context.Background()

	id := common.HexToHash("0x02")
	v1 := testRecord(id, 1, time.Unix(100, 0).UTC())
	require.NoError(t, store.CreateRecord(ctx, v1, testChange(v1, registry.ChangeCreated)))

	v2 := v1
	v2.Version = 2
	v2.ContentHash = common.HexToHash("0xbb")
	v2.URI = "ipfs://b"
	v2.UpdatedAt = time.Unix(200, 5).UTC()
	require.NoError(t, store.UpdateRecord(ctx, v2, testChange(v2, registry.ChangeUpdated)))

	records, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, v2, records[0])

	history, err := store.RecordHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, testChange(v1, registry.ChangeCreated), history[0])
	assert.Equal(t, testChange(v2, registry.ChangeUpdated), history[1])
}

func TestRecordStoreLongURI(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	store := db.RecordStore()
	ctx := context.Background()

	id := common.HexToHash("0x03")
	v1 := testRecord(id, 1, time.Unix(100, 0).UTC())
	v1.URI = "https://example.com/" + strings.Repeat("a", 5000)
	require.NoError(t, store.CreateRecord(ctx, v1, testChange(v1, registry.ChangeCreated)))

	v2 := v1
	v2.Version = 2
	v2.URI = "ipfs://" + strings.Repeat("b", 9000)
	v2.UpdatedAt = time.Unix(200, 0).UTC()
	require.NoError(t, store.UpdateRecord(ctx, v2, testChange(v2, registry.ChangeUpdated)))

	records, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, v2.URI, records[0].URI)

	history, err := store.RecordHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, v1.URI, history[0].URI)
	assert.Equal(t, v2.URI, history[1].URI)
}

func TestURIColumnsUnbounded(t *testing.T) {
	for _, model := range []any{&models.Record{}, &models.RecordChange{}} {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		field := s.LookUpField("URI")
		require.NotNil(t, field, s.Name)
		assert.Equal(t, schema.DataType("text"), field.DataType, s.Name)
		assert.Zero(t, field.Size, s.Name)
	}
}

func TestRecordStoreUpdateConflict(t *testing.T) {
	db := newTestDatabase(t, "")
	defer db.Close()
	store := db.RecordStore()
	ctx := context.Background()

	id := common.HexToHash("0x03")
	v1 := testRecord(id, 1, time.Unix(100, 0).UTC())
	require.NoError(t, store.CreateRecord(ctx, v1, testChange(v1, registry.ChangeCreated)))

	// Skipping a version must not apply
	v3 := v1
	v3.Version = 3
	require.Error(t, store.UpdateRecord(ctx, v3, testChange(v3, registry.ChangeUpdated)))

	history, err := store.RecordHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRegistryPersistence(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()
	id := common.HexToHash("0x04")

	db := newTestDatabase(t, dataDir)
	reg, err := registry.New(ctx, registry.WithStore(db.RecordStore()))
	require.NoError(t, err)
	_, err = reg.Create(ctx, id, common.HexToHash("0xaa"), "ipfs://a", alice)
	require.NoError(t, err)
	_, err = reg.Update(ctx, id, common.HexToHash("0xbb"), "ipfs://b", bob)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
	updated, err := reg.Update(ctx, id, common.HexToHash("0xbb"), "ipfs://b", alice)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopen and reload
	db = newTestDatabase(t, dataDir)
	defer db.Close()
	reg, err = registry.New(ctx, registry.WithStore(db.RecordStore()))
	require.NoError(t, err)
	rec, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, updated, rec)
	assert.Equal(t, uint64(2), rec.Version)
	assert.Equal(t, alice, rec.Owner)

	history, err := reg.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, registry.ChangeCreated, history[0].Kind)
	assert.Equal(t, registry.ChangeUpdated, history[1].Kind)

	// Writes continue from the reloaded version
	rec, err = reg.Update(ctx, id, common.HexToHash("0xcc"), "ipfs://c", alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Version)
}
