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

package api

import (
	"context"

	"github.com/blinklabs-io/metatracer/registry"
)

// Registry is the subset of the record registry used by the API
type Registry interface {
	Create(
		ctx context.Context,
		id registry.RecordID,
		contentHash registry.ContentHash,
		uri string,
		caller registry.Identity,
	) (registry.Record, error)
	CreateWithContent(
		ctx context.Context,
		id registry.RecordID,
		caller registry.Identity,
		fn registry.ContentFunc,
	) (registry.Record, error)
	Update(
		ctx context.Context,
		id registry.RecordID,
		contentHash registry.ContentHash,
		uri string,
		caller registry.Identity,
	) (registry.Record, error)
	UpdateWithContent(
		ctx context.Context,
		id registry.RecordID,
		caller registry.Identity,
		fn registry.ContentFunc,
	) (registry.Record, error)
	Get(id registry.RecordID) (registry.Record, bool)
	List() []registry.Record
	Len() int
	History(ctx context.Context, id registry.RecordID) ([]registry.Change, error)
}

// ObjectStore stores and serves versioned JSON objects
type ObjectStore interface {
	// ContentFunc returns a registry.ContentFunc storing data as the object
	// for the version being written
	ContentFunc(ctx context.Context, data []byte) registry.ContentFunc
	Get(ctx context.Context, idHex string, name string) ([]byte, error)
}
