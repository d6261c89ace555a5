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

package database

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/types"
)

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

// checkCommitTimestamp compares the last commit recorded by each store. Blob
// writes happen first, so a blob store that is ahead only means orphaned
// content from an interrupted write. A metadata store that is ahead means
// records point at content that was lost.
func (d *Database) checkCommitTimestamp() error {
	// Get value from metadata
	metadataTimestamp, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf(
			"failed to get metadata timestamp from plugin: %w",
			err,
		)
	}
	// Get value from blob
	blobTimestamp, err := d.getBlobCommitTimestamp(context.Background())
	if err != nil {
		return fmt.Errorf(
			"failed to get blob timestamp from plugin: %w",
			err,
		)
	}
	switch {
	case metadataTimestamp == blobTimestamp:
		return nil
	case metadataTimestamp < blobTimestamp:
		d.logger.Warn(
			"blob store is ahead of metadata store, an earlier write was interrupted",
			"metadata_timestamp", metadataTimestamp,
			"blob_timestamp", blobTimestamp,
		)
		return nil
	default:
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
}

// getBlobCommitTimestamp reads the blob commit timestamp. Remote blob stores
// seal it with sops; local ones keep the raw 8-byte value.
func (d *Database) getBlobCommitTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	var err error
	if cts, ok := d.Blob().(blob.CommitTimestampStore); ok {
		ts, err = cts.GetCommitTimestamp(ctx)
	} else {
		var val []byte
		val, err = d.Blob().Get(ctx, types.CommitTimestampBlobKey)
		if err == nil {
			if len(val) != 8 {
				return 0, fmt.Errorf(
					"invalid blob commit timestamp length %d",
					len(val),
				)
			}
			ts = int64(binary.BigEndian.Uint64(val)) //nolint:gosec
		}
	}
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return ts, nil
}

func (d *Database) setBlobCommitTimestamp(
	ctx context.Context,
	timestamp int64,
) error {
	if cts, ok := d.Blob().(blob.CommitTimestampStore); ok {
		return cts.SetCommitTimestamp(ctx, timestamp)
	}
	return d.Blob().Set(
		ctx,
		types.CommitTimestampBlobKey,
		blob.PlainCommitTimestamp(timestamp),
	)
}
