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
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blinklabs-io/metatracer/event"
)

const (
	RecordCreatedEventType event.EventType = "registry.record.created"
	RecordUpdatedEventType event.EventType = "registry.record.updated"
)

type ChangeKind uint8

const (
	ChangeCreated ChangeKind = iota + 1
	ChangeUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change describes one committed write to a record. It is the payload of
// registry events and the unit of record history. For a created record,
// Caller is the owner.
type Change struct {
	Kind        ChangeKind
	RecordID    RecordID
	ContentHash ContentHash
	URI         string
	Version     uint64
	Caller      Identity
	Timestamp   time.Time
	TxHash      common.Hash
}

// EventType returns the event bus type for the change
func (c Change) EventType() event.EventType {
	if c.Kind == ChangeCreated {
		return RecordCreatedEventType
	}
	return RecordUpdatedEventType
}

func newChange(kind ChangeKind, rec Record, caller Identity) Change {
	c := Change{
		Kind:        kind,
		RecordID:    rec.ID,
		ContentHash: rec.ContentHash,
		URI:         rec.URI,
		Version:     rec.Version,
		Caller:      caller,
		Timestamp:   rec.UpdatedAt,
	}
	c.TxHash = c.computeTxHash()
	return c
}

// computeTxHash returns keccak256(id | contentHash | version | caller |
// timestamp ns | kind | uri) with integers in big-endian form
func (c Change) computeTxHash() common.Hash {
	var tmp [17]byte
	binary.BigEndian.PutUint64(tmp[0:8], c.Version)
	binary.BigEndian.PutUint64(tmp[8:16], uint64(c.Timestamp.UnixNano())) //nolint:gosec
	tmp[16] = byte(c.Kind)
	return crypto.Keccak256Hash(
		c.RecordID.Bytes(),
		c.ContentHash.Bytes(),
		tmp[0:8],
		c.Caller.Bytes(),
		tmp[8:17],
		[]byte(c.URI),
	)
}
