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

import "errors"

var (
	// ErrAlreadyExists is returned when creating a record at an occupied ID
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound is returned when updating or querying an absent record
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when a caller other than the owner attempts an update
	ErrUnauthorized = errors.New("caller is not the record owner")

	// ErrInvalidCaller is returned for the zero identity, which cannot own a record
	ErrInvalidCaller = errors.New("invalid caller identity")
)
