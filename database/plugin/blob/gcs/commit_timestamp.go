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

package gcs

import (
	"context"

	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/types"
)

var _ blob.CommitTimestampStore = (*BlobStoreGCS)(nil)

func (d *BlobStoreGCS) GetCommitTimestamp(ctx context.Context) (int64, error) {
	data, err := d.Get(ctx, types.CommitTimestampBlobKey)
	if err != nil {
		return 0, err
	}
	ts, plaintext, err := blob.DecodeCommitTimestamp(data)
	if err != nil {
		d.logError("decrypt", types.CommitTimestampBlobKey, err)
		return 0, err
	}
	if plaintext && d.sealed {
		d.logger.Warn(
			"commit timestamp stored plaintext in GCS, migrating to sops encryption",
			"bucket", d.bucketName,
		)
		if err := d.SetCommitTimestamp(ctx, ts); err != nil {
			d.logError("migrate", types.CommitTimestampBlobKey, err)
		}
	}
	return ts, nil
}

func (d *BlobStoreGCS) SetCommitTimestamp(ctx context.Context, ts int64) error {
	data, err := blob.EncodeCommitTimestamp(ts)
	if err != nil {
		d.logError("encrypt", types.CommitTimestampBlobKey, err)
		return err
	}
	return d.Set(ctx, types.CommitTimestampBlobKey, data)
}
