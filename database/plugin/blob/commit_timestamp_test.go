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

package blob_test

import (
	"os"
	"testing"

	fage "filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/database/plugin/blob"
	"github.com/blinklabs-io/metatracer/database/sops"
)

func setKeyEnv(t *testing.T, withAge bool) {
	t.Helper()
	for _, name := range []string{
		sops.EnvGCPKMSResourceID,
		sops.EnvAWSKMSKeyARNs,
		sops.EnvAgeRecipients,
		"SOPS_AGE_KEY",
		"SOPS_AGE_KEY_FILE",
		"SOPS_AGE_KEY_CMD",
		"SOPS_AGE_SSH_PRIVATE_KEY_FILE",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	if !withAge {
		return
	}
	identity, err := fage.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv(sops.EnvAgeRecipients, identity.Recipient().String())
	t.Setenv("SOPS_AGE_KEY", identity.String())
}

const testTimestamp int64 = 1_767_225_600_123_456_789

func TestCommitTimestampSealed(t *testing.T) {
	setKeyEnv(t, true)
	data, err := blob.EncodeCommitTimestamp(testTimestamp)
	require.NoError(t, err)
	assert.NotEqual(t, blob.PlainCommitTimestamp(testTimestamp), data)
	assert.NotContains(t, string(data), "1767225600123456789")

	ts, plaintext, err := blob.DecodeCommitTimestamp(data)
	require.NoError(t, err)
	assert.False(t, plaintext)
	assert.Equal(t, testTimestamp, ts)
}

func TestCommitTimestampWithoutKeys(t *testing.T) {
	setKeyEnv(t, false)
	data, err := blob.EncodeCommitTimestamp(testTimestamp)
	require.NoError(t, err)
	assert.Equal(t, blob.PlainCommitTimestamp(testTimestamp), data)

	ts, plaintext, err := blob.DecodeCommitTimestamp(data)
	require.NoError(t, err)
	assert.True(t, plaintext)
	assert.Equal(t, testTimestamp, ts)
}

func TestCommitTimestampPlaintextReadWithKeys(t *testing.T) {
	setKeyEnv(t, true)
	ts, plaintext, err := blob.DecodeCommitTimestamp(
		blob.PlainCommitTimestamp(testTimestamp),
	)
	require.NoError(t, err)
	assert.True(t, plaintext)
	assert.Equal(t, testTimestamp, ts)
}

func TestCommitTimestampCorrupt(t *testing.T) {
	setKeyEnv(t, true)
	_, _, err := blob.DecodeCommitTimestamp([]byte("{not sealed}"))
	require.Error(t, err)
}
