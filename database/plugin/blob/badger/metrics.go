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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const badgerMetricNamePrefix = "database_blob_badger_"

type blobMetrics struct {
	ops    *prometheus.CounterVec
	bytes  *prometheus.CounterVec
	gcRuns prometheus.Counter
}

func (d *BlobStoreBadger) registerBlobMetrics() {
	promautoFactory := promauto.With(d.promRegistry)
	d.metrics = &blobMetrics{
		ops: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "ops_total",
				Help: "Total number of badger blob operations",
			},
			[]string{"op", "result"},
		),
		bytes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for badger blob operations",
			},
			[]string{"op"},
		),
		gcRuns: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "gc_runs_total",
				Help: "Total value log files rewritten by GC",
			},
		),
	}
}

func (d *BlobStoreBadger) observe(op string, result string, size int) {
	if d.metrics == nil {
		return
	}
	d.metrics.ops.WithLabelValues(op, result).Inc()
	if size > 0 {
		d.metrics.bytes.WithLabelValues(op).Add(float64(size))
	}
}
