// Copyright 2024 The Cockroach Authors
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

package pool

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pool activity to prometheus. The collectors are safe to
// scrape concurrently with the (single-threaded) pool that updates them. A
// nil *Metrics is valid and records nothing.
type Metrics struct {
	Borrows     prometheus.Counter
	Releases    prometheus.Counter
	Allocations prometheus.Counter
	Discards    prometheus.Counter
	Capacity    prometheus.Gauge
}

// NewMetrics creates the pool collectors under namespace. The name is
// attached as a constant "pool" label so several pools can share a registry.
func NewMetrics(namespace, name string) *Metrics {
	labels := prometheus.Labels{"pool": name}
	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	return &Metrics{
		Borrows:     counter("borrows_total", "Objects borrowed from the pool"),
		Releases:    counter("releases_total", "Objects returned to the pool"),
		Allocations: counter("allocations_total", "Objects constructed by the pool"),
		Discards:    counter("discards_total", "Borrowed objects detached by the pool when at capacity"),
		Capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        "capacity",
			Help:        "Objects tracked by the pool, idle or borrowed",
			ConstLabels: labels,
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Borrows, m.Releases, m.Allocations, m.Discards, m.Capacity,
	} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "pool: register metrics")
		}
	}
	return nil
}

func (m *Metrics) borrowed() {
	if m != nil {
		m.Borrows.Inc()
	}
}

func (m *Metrics) released() {
	if m != nil {
		m.Releases.Inc()
	}
}

func (m *Metrics) allocated() {
	if m != nil {
		m.Allocations.Inc()
	}
}

func (m *Metrics) discarded(n int) {
	if m != nil {
		m.Discards.Add(float64(n))
	}
}

func (m *Metrics) setCapacity(n int) {
	if m != nil {
		m.Capacity.Set(float64(n))
	}
}
