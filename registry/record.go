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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecordID is the caller-supplied 32-byte key of a record
type RecordID = common.Hash

// ContentHash is an opaque 32-byte digest of off-chain content
type ContentHash = common.Hash

// Identity is the address of a caller or record owner
type Identity = common.Address

// Record is a single versioned metadata entry
type Record struct {
	ID          RecordID
	ContentHash ContentHash
	URI         string
	Version     uint64
	Owner       Identity
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UpdatedBy   Identity
}

// Exists reports whether the record has been created. A record with a zero
// owner is treated as absent.
func (r Record) Exists() bool {
	return r.Owner != (Identity{})
}

// LastChange returns the change that produced the current version of the
// record. It matches the last entry of the record's history.
func (r Record) LastChange() Change {
	kind := ChangeUpdated
	if r.Version == 1 {
		kind = ChangeCreated
	}
	return newChange(kind, r, r.UpdatedBy)
}

// NewRecordID derives a record ID from arbitrary seed bytes
func NewRecordID(seed []byte) RecordID {
	return crypto.Keccak256Hash(seed)
}

// ParseRecordID parses a 32-byte hex record ID with optional 0x prefix
func ParseRecordID(s string) (RecordID, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return RecordID{}, fmt.Errorf("invalid record ID: %w", err)
	}
	if len(raw) != common.HashLength {
		return RecordID{}, fmt.Errorf(
			"invalid record ID: must be %d bytes, got %d",
			common.HashLength,
			len(raw),
		)
	}
	return common.BytesToHash(raw), nil
}

// ParseIdentity parses a 20-byte hex address with optional 0x prefix
func ParseIdentity(s string) (Identity, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid identity: %w", err)
	}
	if len(raw) != common.AddressLength {
		return Identity{}, fmt.Errorf(
			"invalid identity: must be %d bytes, got %d",
			common.AddressLength,
			len(raw),
		)
	}
	return common.BytesToAddress(raw), nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return nil, errors.New("empty hex string")
	}
	return hex.DecodeString(s)
}
