// Copyright 2025 Blink Labs Software
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

package gcs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/metatracer/database/plugin/blob/gcs"
	"github.com/blinklabs-io/metatracer/database/types"
)

func TestCredentialValidation(t *testing.T) {
	// Create temp directory for test files
	tempDir := t.TempDir()

	tests := []struct {
		name            string
		CredentialsFile string
		expectError     bool
		errorMessage    string
	}{
		{
			name: "valid credentials file",
			CredentialsFile: func() string {
				// Create a temporary file that exists
				tempFile, err := os.CreateTemp(tempDir, "credentials-*.json")
				if err != nil {
					t.Fatalf("Failed to create temp file: %v", err)
				}
				tempFile.Close()
				return tempFile.Name()
			}(),
			expectError: false,
		},
		{
			name: "nonexistent credentials file",
			CredentialsFile: filepath.Join(
				tempDir,
				"nonexistent-credentials.json",
			),
			expectError:  true,
			errorMessage: "GCS credentials file does not exist",
		},
		{
			name:            "empty credentials file path",
			CredentialsFile: "",
			expectError:     false, // Should not error when empty
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gcs.ValidateCredentials(tt.CredentialsFile)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewFromURL(t *testing.T) {
	store, err := gcs.New("gcs://my-bucket/metatracer", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Nil(t, store.Bucket(), "bucket handle is only set by Start")

	_, err = gcs.New("gcs://", nil, nil)
	require.Error(t, err)
	_, err = gcs.New("s3://bucket", nil, nil)
	require.Error(t, err)
}

func TestStartMissingCredentials(t *testing.T) {
	store, err := gcs.NewWithOptions(
		gcs.WithBucket("b"),
		gcs.WithCredentialsFile(filepath.Join(t.TempDir(), "missing.json")),
	)
	require.NoError(t, err)
	err = store.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOperationsBeforeStart(t *testing.T) {
	store, err := gcs.NewWithOptions(gcs.WithBucket("b"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
	require.ErrorIs(t, store.Set(ctx, "k", nil), types.ErrBlobStoreUnavailable)
	require.ErrorIs(t, store.Delete(ctx, "k"), types.ErrBlobStoreUnavailable)
	_, err = store.Keys(ctx, "")
	require.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
	require.NoError(t, store.Close())
}
