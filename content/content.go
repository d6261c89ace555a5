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

// Package content stores versioned JSON payloads for registry records on a
// blob store. Objects are addressed as objects/<record id hex>/v<N>.json.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/types"
	"github.com/blinklabs-io/metatracer/registry"
)

const objectKeyPrefix = "objects/"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidObject  = errors.New("invalid object path")

	objectNameRegex = regexp.MustCompile(`^v([1-9][0-9]*)\.json$`)
)

// Store reads and writes content objects
type Store struct {
	blob          blob.BlobStore
	logger        *slog.Logger
	publicBaseURL string
}

type StoreOptionFunc func(*Store)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPublicBaseURL sets the URL prefix used when building object URIs
func WithPublicBaseURL(baseURL string) StoreOptionFunc {
	return func(s *Store) {
		s.publicBaseURL = baseURL
	}
}

func New(blobStore blob.BlobStore, opts ...StoreOptionFunc) *Store {
	s := &Store{
		blob: blobStore,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "content")
	return s
}

// Hash returns the SHA-256 digest of data
func Hash(data []byte) registry.ContentHash {
	return registry.ContentHash(sha256.Sum256(data))
}

// ObjectName returns the file name of a record version's object
func ObjectName(version uint64) string {
	return "v" + strconv.FormatUint(version, 10) + ".json"
}

// ObjectPath returns the path of an object relative to the server root
func ObjectPath(id registry.RecordID, version uint64) string {
	return "/" + ObjectKey(id, version)
}

// ObjectKey returns the blob key of a record version's object
func ObjectKey(id registry.RecordID, version uint64) string {
	return objectKeyPrefix + hex.EncodeToString(id.Bytes()) + "/" + ObjectName(version)
}

// URI returns the public URI of an object. It is a root-relative path when
// baseURL is empty.
func URI(baseURL string, id registry.RecordID, version uint64) string {
	return strings.TrimRight(baseURL, "/") + ObjectPath(id, version)
}

// URI returns the public URI of an object using the configured base URL
func (s *Store) URI(id registry.RecordID, version uint64) string {
	return URI(s.publicBaseURL, id, version)
}

// Put stores data as the object for the given record version and returns
// its URI
func (s *Store) Put(
	ctx context.Context,
	id registry.RecordID,
	version uint64,
	data []byte,
) (string, error) {
	key := ObjectKey(id, version)
	if err := s.blob.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("store object %s: %w", key, err)
	}
	s.logger.Debug(
		"stored object",
		"key", key,
		"size", len(data),
	)
	return s.URI(id, version), nil
}

// Get returns a stored object by record ID hex, with or without a 0x
// prefix, and object name
func (s *Store) Get(ctx context.Context, idHex string, name string) ([]byte, error) {
	id, err := registry.ParseRecordID(idHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}
	m := objectNameRegex.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("%w: bad object name %q", ErrInvalidObject, name)
	}
	version, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}
	data, err := s.blob.Get(ctx, ObjectKey(id, version))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

// Versions returns the stored object versions for a record in ascending order
func (s *Store) Versions(ctx context.Context, id registry.RecordID) ([]uint64, error) {
	prefix := objectKeyPrefix + hex.EncodeToString(id.Bytes()) + "/"
	keys, err := s.blob.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ret := make([]uint64, 0, len(keys))
	for _, key := range keys {
		m := objectNameRegex.FindStringSubmatch(strings.TrimPrefix(key, prefix))
		if m == nil {
			continue
		}
		v, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		ret = append(ret, v)
	}
	// Keys sort lexically, so v10 precedes v2
	slices.Sort(ret)
	return ret, nil
}

// ContentFunc returns a registry.ContentFunc that stores data as the object
// for the version being written. The content hash is the SHA-256 of data.
func (s *Store) ContentFunc(ctx context.Context, data []byte) registry.ContentFunc {
	return func(id registry.RecordID, version uint64) (registry.ContentHash, string, error) {
		uri, err := s.Put(ctx, id, version, data)
		if err != nil {
			return registry.ContentHash{}, "", err
		}
		return Hash(data), uri, nil
	}
}
