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

package blob

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/metatracer/database/sops"
)

// CommitTimestampStore is implemented by blob stores that manage the encoding
// of their own commit timestamp. Get returns types.ErrBlobKeyNotFound when
// no timestamp has been written.
type CommitTimestampStore interface {
	GetCommitTimestamp(ctx context.Context) (int64, error)
	SetCommitTimestamp(ctx context.Context, ts int64) error
}

// EncodeCommitTimestamp returns the stored form of ts: a sops document when
// master keys are configured, otherwise the raw 8-byte big-endian value.
func EncodeCommitTimestamp(ts int64) ([]byte, error) {
	if !sops.Configured() {
		return PlainCommitTimestamp(ts), nil
	}
	return sops.Encrypt([]byte(strconv.FormatInt(ts, 10)))
}

// DecodeCommitTimestamp reverses EncodeCommitTimestamp. plaintext is set when
// the value was stored without encryption.
func DecodeCommitTimestamp(data []byte) (ts int64, plaintext bool, err error) {
	if len(data) == 8 && !json.Valid(data) {
		return int64(binary.BigEndian.Uint64(data)), true, nil //nolint:gosec
	}
	opened, err := sops.Decrypt(data)
	if err != nil {
		return 0, false, err
	}
	ts, err = strconv.ParseInt(string(opened), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid commit timestamp %q: %w", opened, err)
	}
	return ts, false, nil
}

func PlainCommitTimestamp(ts int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts)) //nolint:gosec
	return buf[:]
}
