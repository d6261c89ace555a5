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

package aws

import (
	"context"

	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/types"
)

var _ blob.CommitTimestampStore = (*BlobStoreS3)(nil)

// GetCommitTimestamp reads the sealed commit timestamp. A plaintext value is
// re-sealed in place once master keys are configured.
func (d *BlobStoreS3) GetCommitTimestamp(ctx context.Context) (int64, error) {
	data, err := d.Get(ctx, types.CommitTimestampBlobKey)
	if err != nil {
		return 0, err
	}
	ts, plaintext, err := blob.DecodeCommitTimestamp(data)
	if err != nil {
		d.logger.Errorf(
			types.CommitTimestampBlobKey,
			"failed to decrypt commit timestamp",
			err,
		)
		return 0, err
	}
	if plaintext && d.sealed {
		d.logger.Warnf(
			"commit timestamp stored plaintext in S3, migrating to sops encryption",
		)
		if err := d.SetCommitTimestamp(ctx, ts); err != nil {
			d.logger.Errorf(
				types.CommitTimestampBlobKey,
				"failed to migrate plaintext commit timestamp",
				err,
			)
		}
	}
	return ts, nil
}

func (d *BlobStoreS3) SetCommitTimestamp(ctx context.Context, ts int64) error {
	data, err := blob.EncodeCommitTimestamp(ts)
	if err != nil {
		d.logger.Errorf(
			types.CommitTimestampBlobKey,
			"failed to encrypt commit timestamp",
			err,
		)
		return err
	}
	if err := d.Set(ctx, types.CommitTimestampBlobKey, data); err != nil {
		return err
	}
	d.logger.Debugf("commit timestamp %d written to S3", ts)
	return nil
}
