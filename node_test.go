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

package metatracer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/registry"
)

type testNode struct {
	node   *Node
	cancel context.CancelFunc
	errCh  chan error
}

func startTestNode(t *testing.T, opts ...ConfigOptionFunc) *testNode {
	t.Helper()
	opts = append(
		[]ConfigOptionFunc{
			// In-memory storage unless a test supplies its own path
			WithDatabasePath(""),
			WithListenAddress("127.0.0.1:0"),
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithShutdownTimeout(5 * time.Second),
		},
		opts...,
	)
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	tn := &testNode{
		node:   n,
		cancel: cancel,
		errCh:  make(chan error, 1),
	}
	go func() {
		tn.errCh <- n.Run(ctx)
	}()
	require.Eventually(
		t,
		func() bool { return n.APIAddr() != "" },
		5*time.Second,
		10*time.Millisecond,
	)
	return tn
}

func (tn *testNode) stop(t *testing.T) {
	t.Helper()
	tn.cancel()
	select {
	case err := <-tn.errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not return from Run")
	}
	require.NoError(t, tn.node.Stop())
}

func (tn *testNode) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(
		"http://"+tn.node.APIAddr()+"/api/metadata",
		"application/json",
		bytes.NewBufferString(body),
	)
	require.NoError(t, err)
	return resp
}

func TestNodeRunServesAPI(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(key.PublicKey)
	tn := startTestNode(t, WithPrivateKey(key))
	defer tn.stop(t)

	resp, err := http.Get("http://" + tn.node.APIAddr() + "/api/address")
	require.NoError(t, err)
	var addr map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&addr))
	resp.Body.Close()
	assert.Equal(t, crypto.CreateAddress(account, 0).Hex(), addr["contract"])

	resp = tn.post(t, `{"json_text":"{\"name\":\"a\"}"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	reg := tn.node.Registry()
	require.NotNil(t, reg)
	require.Equal(t, 1, reg.Len())
	rec := reg.List()[0]
	assert.Equal(t, account, rec.Owner)
	assert.Equal(t, uint64(1), rec.Version)
}

func TestNodePersistence(t *testing.T) {
	dir := t.TempDir()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	recordID := registry.NewRecordID([]byte("persisted"))

	tn := startTestNode(t, WithPrivateKey(key), WithDatabasePath(dir))
	resp := tn.post(
		t,
		`{"recordIdHex":"`+recordID.Hex()+`","uri":"ipfs://persisted"}`,
	)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tn.stop(t)

	tn = startTestNode(t, WithPrivateKey(key), WithDatabasePath(dir))
	defer tn.stop(t)
	rec, ok := tn.node.Registry().Get(recordID)
	require.True(t, ok)
	assert.Equal(t, "ipfs://persisted", rec.URI)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), rec.Owner)
}

func TestNodeStopIdempotent(t *testing.T) {
	tn := startTestNode(t)
	tn.stop(t)
	require.NoError(t, tn.node.Stop())
}

func TestNodeRunAfterStop(t *testing.T) {
	n, err := New(NewConfig())
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	require.Error(t, n.Run(context.Background()))
}

func TestNodeGeneratesAccount(t *testing.T) {
	n, err := New(NewConfig())
	require.NoError(t, err)
	defer n.Stop()
	assert.NotEqual(t, [20]byte{}, [20]byte(n.config.Account()))
}
