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
	"context"
	"fmt"
	"sync"
)

// Store persists records and their change history. The registry serializes
// all writes, so implementations see at most one write at a time.
type Store interface {
	// LoadRecords returns every stored record
	LoadRecords(ctx context.Context) ([]Record, error)
	// CreateRecord inserts a new record with its creation change
	CreateRecord(ctx context.Context, rec Record, change Change) error
	// UpdateRecord replaces a record whose stored version is rec.Version-1
	// and appends the change to its history
	UpdateRecord(ctx context.Context, rec Record, change Change) error
	// RecordHistory returns the changes for a record in version order
	RecordHistory(ctx context.Context, id RecordID) ([]Change, error)
}

// MemoryStore is a Store that keeps everything in process memory
type MemoryStore struct {
	records map[RecordID]Record
	history map[RecordID][]Change
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[RecordID]Record),
		history: make(map[RecordID][]Change),
	}
}

func (m *MemoryStore) LoadRecords(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		ret = append(ret, rec)
	}
	return ret, nil
}

func (m *MemoryStore) CreateRecord(
	_ context.Context,
	rec Record,
	change Change,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID.Hex())
	}
	m.records[rec.ID] = rec
	m.history[rec.ID] = []Change{change}
	return nil
}

func (m *MemoryStore) UpdateRecord(
	_ context.Context,
	rec Record,
	change Change,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[rec.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID.Hex())
	}
	if cur.Version+1 != rec.Version {
		return fmt.Errorf(
			"version conflict for record %s: stored %d, writing %d",
			rec.ID.Hex(),
			cur.Version,
			rec.Version,
		)
	}
	m.records[rec.ID] = rec
	m.history[rec.ID] = append(m.history[rec.ID], change)
	return nil
}

func (m *MemoryStore) RecordHistory(
	_ context.Context,
	id RecordID,
) ([]Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Change(nil), m.history[id]...), nil
}
