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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	records    prometheus.Gauge
	creates    prometheus.Counter
	updates    prometheus.Counter
	rejections *prometheus.CounterVec
}

func (r *Registry) initMetrics() {
	promautoFactory := promauto.With(r.promRegistry)
	r.metrics = &registryMetrics{
		records: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "metatracer_registry_records",
			Help: "number of records in the registry",
		}),
		creates: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "metatracer_registry_creates_total",
			Help: "total records created",
		}),
		updates: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "metatracer_registry_updates_total",
			Help: "total record updates",
		}),
		rejections: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metatracer_registry_rejections_total",
				Help: "total rejected registry writes by reason",
			},
			[]string{"reason"},
		),
	}
}
