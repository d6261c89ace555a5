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

package types

import "errors"

// CommitTimestampBlobKey is the blob key holding the last commit timestamp
const CommitTimestampBlobKey = "metadata_commit_timestamp"

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrRecordNotFound is returned when a metadata record does not exist
var ErrRecordNotFound = errors.New("record not found")

// ErrRecordExists is returned when inserting a record that already exists
var ErrRecordExists = errors.New("record already exists")

// ErrRecordVersionConflict is returned when a conditional record update
// finds a stored version other than the one it expected
var ErrRecordVersionConflict = errors.New("record version conflict")
