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
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/metatracer/event"
)

type RegistryOptionFunc func(*Registry)

// WithStore specifies the persistent store backing the registry
func WithStore(store Store) RegistryOptionFunc {
	return func(r *Registry) {
		r.store = store
	}
}

// WithEventBus specifies the event bus used for change notifications
func WithEventBus(eventBus *event.EventBus) RegistryOptionFunc {
	return func(r *Registry) {
		r.eventBus = eventBus
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) RegistryOptionFunc {
	return func(r *Registry) {
		r.promRegistry = registry
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) RegistryOptionFunc {
	return func(r *Registry) {
		r.now = now
	}
}
