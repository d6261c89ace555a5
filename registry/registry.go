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

package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/metatracer/event"
)

// ContentFunc produces the content hash and URI for the version about to be
// written. It runs while the registry write lock is held, after all
// preconditions have passed, so it may store version-addressed content
// without racing other writers. Returning an error aborts the write.
type ContentFunc func(id RecordID, version uint64) (ContentHash, string, error)

// Registry holds versioned records keyed by ID. All writes are serialized
// by a single lock covering the precondition check, persistence and the
// in-memory update. Change notifications are queued under that lock and
// published in commit order after it is released, so subscribers may call
// back into the registry.
type Registry struct {
	promRegistry prometheus.Registerer
	store        Store
	eventBus     *event.EventBus
	logger       *slog.Logger
	metrics      *registryMetrics
	now          func() time.Time
	records      map[RecordID]Record
	pending      []Change
	mu           sync.RWMutex
	publishMu    sync.Mutex
}

// New creates a registry and loads any records already in the store
func New(ctx context.Context, opts ...RegistryOptionFunc) (*Registry, error) {
	r := &Registry{
		records: make(map[RecordID]Record),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.store == nil {
		r.store = NewMemoryStore()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.promRegistry != nil {
		r.initMetrics()
	}
	records, err := r.store.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	if r.metrics != nil {
		r.metrics.records.Set(float64(len(r.records)))
	}
	r.logger.Info(
		fmt.Sprintf("loaded %d records", len(records)),
		"component", "registry",
	)
	return r, nil
}

// Create inserts a new record owned by caller with version 1
func (r *Registry) Create(
	ctx context.Context,
	id RecordID,
	contentHash ContentHash,
	uri string,
	caller Identity,
) (Record, error) {
	return r.CreateWithContent(
		ctx,
		id,
		caller,
		staticContent(contentHash, uri),
	)
}

// Update replaces the content hash and URI of a record and increments its version.
// Only the record owner may update it.
func (r *Registry) Update(
	ctx context.Context,
	id RecordID,
	contentHash ContentHash,
	uri string,
	caller Identity,
) (Record, error) {
	return r.UpdateWithContent(
		ctx,
		id,
		caller,
		staticContent(contentHash, uri),
	)
}

func staticContent(contentHash ContentHash, uri string) ContentFunc {
	return func(RecordID, uint64) (ContentHash, string, error) {
		return contentHash, uri, nil
	}
}

// CreateWithContent is Create with the content supplied by fn
func (r *Registry) CreateWithContent(
	ctx context.Context,
	id RecordID,
	caller Identity,
	fn ContentFunc,
) (Record, error) {
	rec, err := r.create(ctx, id, caller, fn)
	if err != nil {
		return Record{}, err
	}
	r.flushChanges()
	return rec, nil
}

func (r *Registry) create(
	ctx context.Context,
	id RecordID,
	caller Identity,
	fn ContentFunc,
) (Record, error) {
	if caller == (Identity{}) {
		r.reject("invalid_caller")
		return Record{}, ErrInvalidCaller
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[id]; ok && existing.Exists() {
		r.reject("already_exists")
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, id.Hex())
	}
	contentHash, uri, err := fn(id, 1)
	if err != nil {
		return Record{}, fmt.Errorf("prepare content: %w", err)
	}
	now := r.timestamp()
	rec := Record{
		ID:          id,
		ContentHash: contentHash,
		URI:         uri,
		Version:     1,
		Owner:       caller,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdatedBy:   caller,
	}
	change := newChange(ChangeCreated, rec, caller)
	if err := r.store.CreateRecord(ctx, rec, change); err != nil {
		return Record{}, fmt.Errorf("persist record: %w", err)
	}
	r.records[id] = rec
	if r.metrics != nil {
		r.metrics.creates.Inc()
		r.metrics.records.Set(float64(len(r.records)))
	}
	r.logger.Debug(
		"record created",
		"component", "registry",
		"record_id", id.Hex(),
		"owner", caller.Hex(),
	)
	r.pending = append(r.pending, change)
	return rec, nil
}

// UpdateWithContent is Update with the content supplied by fn
func (r *Registry) UpdateWithContent(
	ctx context.Context,
	id RecordID,
	caller Identity,
	fn ContentFunc,
) (Record, error) {
	rec, err := r.update(ctx, id, caller, fn)
	if err != nil {
		return Record{}, err
	}
	r.flushChanges()
	return rec, nil
}

func (r *Registry) update(
	ctx context.Context,
	id RecordID,
	caller Identity,
	fn ContentFunc,
) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[id]
	if !ok || !cur.Exists() {
		r.reject("not_found")
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id.Hex())
	}
	if caller != cur.Owner {
		r.reject("unauthorized")
		return Record{}, fmt.Errorf(
			"%w: %s cannot update record %s",
			ErrUnauthorized,
			caller.Hex(),
			id.Hex(),
		)
	}
	contentHash, uri, err := fn(id, cur.Version+1)
	if err != nil {
		return Record{}, fmt.Errorf("prepare content: %w", err)
	}
	rec := cur
	rec.ContentHash = contentHash
	rec.URI = uri
	rec.Version = cur.Version + 1
	rec.UpdatedAt = r.timestamp()
	rec.UpdatedBy = caller
	change := newChange(ChangeUpdated, rec, caller)
	if err := r.store.UpdateRecord(ctx, rec, change); err != nil {
		return Record{}, fmt.Errorf("persist record: %w", err)
	}
	r.records[id] = rec
	if r.metrics != nil {
		r.metrics.updates.Inc()
	}
	r.logger.Debug(
		"record updated",
		"component", "registry",
		"record_id", id.Hex(),
		"version", rec.Version,
	)
	r.pending = append(r.pending, change)
	return rec, nil
}

// Get returns the record at id. A missing record is not an error.
func (r *Registry) Get(id RecordID) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || !rec.Exists() {
		return Record{}, false
	}
	return rec, true
}

// List returns all records, most recently updated first
func (r *Registry) List() []Record {
	r.mu.RLock()
	ret := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		ret = append(ret, rec)
	}
	r.mu.RUnlock()
	slices.SortFunc(ret, func(a, b Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return ret
}

// Len returns the number of records
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// History returns the committed changes for a record in version order
func (r *Registry) History(ctx context.Context, id RecordID) ([]Change, error) {
	if _, ok := r.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Hex())
	}
	changes, err := r.store.RecordHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return changes, nil
}

// timestamp returns the current time in UTC without a monotonic reading, so
// records compare equal after a round trip through a Store
func (r *Registry) timestamp() time.Time {
	return r.now().UTC().Round(0)
}

func (r *Registry) reject(reason string) {
	if r.metrics != nil {
		r.metrics.rejections.WithLabelValues(reason).Inc()
	}
}

// flushChanges publishes queued changes in commit order. Only one goroutine
// publishes at a time and r.mu is not held during Publish. A writer returns
// only after its own change has been published.
func (r *Registry) flushChanges() {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			return
		}
		change := r.pending[0]
		r.pending[0] = Change{}
		r.pending = r.pending[1:]
		r.mu.Unlock()
		r.publish(change)
	}
}

func (r *Registry) publish(change Change) {
	if r.eventBus == nil {
		return
	}
	evtType := change.EventType()
	r.eventBus.Publish(evtType, event.NewEvent(evtType, change))
}

// IsRejection reports whether err is one of the registry precondition
// failures. Retrying a rejected write with the same arguments fails again.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCaller)
}
