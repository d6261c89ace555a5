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

package content_test

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/content"
	"github.com/blinklabs-io/metatracer/database/plugin/blob/badger"
	"github.com/blinklabs-io/metatracer/registry"
)

const testIDHex = "0x0101010101010101010101010101010101010101010101010101010101010101"

func newTestStore(t *testing.T, opts ...content.StoreOptionFunc) *content.Store {
	t.Helper()
	blobStore, err := badger.New(badger.WithDataDir(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobStore.Close() })
	return content.New(blobStore, opts...)
}

func TestHash(t *testing.T) {
	data := []byte(`{"name":"test"}`)
	sum := sha256.Sum256(data)
	assert.Equal(t, common.Hash(sum), content.Hash(data))
}

func TestObjectKeyAndURI(t *testing.T) {
	id := common.HexToHash(testIDHex)
	hexID := testIDHex[2:]
	assert.Equal(t, "objects/"+hexID+"/v3.json", content.ObjectKey(id, 3))
	assert.Equal(t, "/objects/"+hexID+"/v3.json", content.URI("", id, 3))
	assert.Equal(
		t,
		"https://example.com/objects/"+hexID+"/v1.json",
		content.URI("https://example.com/", id, 1),
	)
}

func TestPutGet(t *testing.T) {
	store := newTestStore(t, content.WithPublicBaseURL("http://meta.local"))
	ctx := context.Background()
	id := common.HexToHash(testIDHex)
	data := []byte(`{"a":1}`)

	uri, err := store.Put(ctx, id, 1, data)
	require.NoError(t, err)
	assert.Equal(t, "http://meta.local/objects/"+testIDHex[2:]+"/v1.json", uri)

	got, err := store.Get(ctx, testIDHex[2:], "v1.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// 0x prefix is accepted
	got, err = store.Get(ctx, testIDHex, "v1.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGetErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		idHex   string
		objName string
		wantErr error
	}{
		{name: "missing object", idHex: testIDHex, objName: "v1.json", wantErr: content.ErrObjectNotFound},
		{name: "bad id", idHex: "zz", objName: "v1.json", wantErr: content.ErrInvalidObject},
		{name: "short id", idHex: "0x0101", objName: "v1.json", wantErr: content.ErrInvalidObject},
		{name: "bad name", idHex: testIDHex, objName: "../v1.json", wantErr: content.ErrInvalidObject},
		{name: "version zero", idHex: testIDHex, objName: "v0.json", wantErr: content.ErrInvalidObject},
		{name: "not json", idHex: testIDHex, objName: "v1.txt", wantErr: content.ErrInvalidObject},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Get(ctx, tc.idHex, tc.objName)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := common.HexToHash(testIDHex)
	other := common.HexToHash("0x02")

	for _, v := range []uint64{1, 2, 10} {
		_, err := store.Put(ctx, id, v, []byte(`{}`))
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, other, 1, []byte(`{}`))
	require.NoError(t, err)

	versions, err := store.Versions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 10}, versions)
}

func TestContentFuncWithRegistry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	reg, err := registry.New(ctx)
	require.NoError(t, err)

	owner := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	id := common.HexToHash(testIDHex)
	v1 := []byte(`{"v":1}`)
	rec, err := reg.CreateWithContent(ctx, id, owner, store.ContentFunc(ctx, v1))
	require.NoError(t, err)
	assert.Equal(t, content.Hash(v1), rec.ContentHash)
	assert.Equal(t, content.URI("", id, 1), rec.URI)

	v2 := []byte(`{"v":2}`)
	rec, err = reg.UpdateWithContent(ctx, id, owner, store.ContentFunc(ctx, v2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.Version)
	assert.Equal(t, content.URI("", id, 2), rec.URI)

	got, err := store.Get(ctx, testIDHex, "v2.json")
	require.NoError(t, err)
	assert.Equal(t, v2, got)
	got, err = store.Get(ctx, testIDHex, "v1.json")
	require.NoError(t, err)
	assert.Equal(t, v1, got)
}
