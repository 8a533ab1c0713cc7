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

package main

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/primcoll"
	"github.com/cockroachdb/primcoll/pool"
	"github.com/cockroachdb/primcoll/quicksort"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

type diffRun struct {
	Layout        string `yaml:"layout"`
	KeySpace      int    `yaml:"key_space"`
	Ops           int    `yaml:"ops"`
	Len           int    `yaml:"len"`
	FinalCapacity int    `yaml:"final_capacity"`
	Mismatches    int    `yaml:"mismatches"`
}

type diffReport struct {
	Runs       []diffRun `yaml:"runs"`
	Mismatches int       `yaml:"mismatches"`
}

func layoutOptions(layout string) ([]primcoll.Option[int], error) {
	switch layout {
	case "linear":
		return nil, nil
	case "robin-hood":
		return []primcoll.Option[int]{primcoll.WithRobinHood[int]()}, nil
	}
	return nil, errors.Newf("unknown layout %q", layout)
}

// runDiff interleaves puts, removals and lookups on keys drawn from
// [0, 2*keySpace) and counts every disagreement with a builtin map.
func runDiff(rng *rand.Rand, layout string, keySpace int, logger hclog.Logger) (diffRun, error) {
	options, err := layoutOptions(layout)
	if err != nil {
		return diffRun{}, err
	}
	m, err := primcoll.New[int, int](0, options...)
	if err != nil {
		return diffRun{}, errors.Wrap(err, "creating map")
	}

	ref := make(map[int]int)
	r := diffRun{Layout: layout, KeySpace: keySpace, Ops: 4 * keySpace}
	for i := 0; i < r.Ops; i++ {
		k := rng.IntN(2 * keySpace)
		expected, present := ref[k]
		switch rng.IntN(3) {
		case 0:
			v := rng.Int()
			if old, replaced := m.Put(k, v); replaced != present || old != expected {
				r.Mismatches++
			}
			ref[k] = v
		case 1:
			if old, removed := m.Remove(k); removed != present || old != expected {
				r.Mismatches++
			}
			delete(ref, k)
		default:
			if m.ContainsKey(k) != present {
				r.Mismatches++
			}
		}
		if m.Len() != len(ref) {
			r.Mismatches++
		}
	}
	for k, v := range ref {
		if got, ok := m.Get(k); !ok || got != v {
			r.Mismatches++
		}
	}
	r.Len, r.FinalCapacity = m.Len(), m.Capacity()
	logger.Debug("differential run", "layout", layout, "key_space", keySpace,
		"capacity", r.FinalCapacity, "mismatches", r.Mismatches)
	return r, nil
}

type sortRun struct {
	N                int  `yaml:"n"`
	NaNs             int  `yaml:"nans"`
	Sorted           bool `yaml:"sorted"`
	MatchesReference bool `yaml:"matches_reference"`
}

type sortReport struct {
	Runs     []sortRun `yaml:"runs"`
	Failures int       `yaml:"failures"`
}

var specialFloats = []float64{
	math.Inf(-1), math.Inf(1), math.Copysign(0, -1), 0, math.NaN(),
	math.Float64frombits(0x7ff8000000000001), math.Float64frombits(0xfff8000000000000),
	math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64,
}

// runSort sorts a mix of finite and special floats and compares the result
// bit for bit with a stable reference sort, ignoring NaN payloads.
func runSort(rng *rand.Rand, n int) sortRun {
	s := make([]float64, n)
	for i := range s {
		if rng.IntN(8) == 0 {
			s[i] = specialFloats[rng.IntN(len(specialFloats))]
		} else {
			s[i] = rng.NormFloat64() * 1000
		}
	}
	ref := slices.Clone(s)
	slices.SortStableFunc(ref, quicksort.CompareFloat[float64])
	quicksort.Sort(s)

	r := sortRun{N: n, Sorted: quicksort.IsSorted(s), MatchesReference: true}
	for i := range s {
		if math.IsNaN(ref[i]) {
			r.NaNs++
			if !math.IsNaN(s[i]) {
				r.MatchesReference = false
			}
			continue
		}
		if math.Float64bits(ref[i]) != math.Float64bits(s[i]) {
			r.MatchesReference = false
		}
	}
	return r
}

type poolReport struct {
	InitialSize     int                `yaml:"initial_size"`
	MaxGrowthFactor int                `yaml:"max_growth_factor"`
	Rounds          int                `yaml:"rounds"`
	Capacity        int                `yaml:"capacity"`
	Bound           int                `yaml:"bound"`
	Bounded         bool               `yaml:"bounded"`
	Metrics         map[string]float64 `yaml:"metrics"`
}

// runPool leaks one cursor per round from a map whose cursor pool reports
// to a private registry, then reads the pool capacity back from the
// registry.
func runPool(cfg pool.Config, rounds int, logger hclog.Logger) (poolReport, error) {
	reg := prometheus.NewRegistry()
	metrics := pool.NewMetrics("primcheck", "cursors")
	if err := metrics.Register(reg); err != nil {
		return poolReport{}, err
	}
	m, err := primcoll.New[int, int](0, primcoll.WithCursorPool[int](
		pool.WithConfig(cfg), pool.WithLogger(logger), pool.WithMetrics(metrics)))
	if err != nil {
		return poolReport{}, errors.Wrap(err, "creating map")
	}
	for i := 0; i < 16; i++ {
		m.Put(i, i)
	}
	for i := 0; i < rounds; i++ {
		c := m.Iterator()
		c.Next()
	}

	families, err := reg.Gather()
	if err != nil {
		return poolReport{}, errors.Wrap(err, "gathering metrics")
	}
	r := poolReport{
		InitialSize:     cfg.InitialSize,
		MaxGrowthFactor: cfg.MaxGrowthFactor,
		Rounds:          rounds,
		Bound:           cfg.InitialSize * cfg.MaxGrowthFactor,
		Metrics:         make(map[string]float64),
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				r.Metrics[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				r.Metrics[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	r.Capacity = int(r.Metrics["primcheck_pool_capacity"])
	r.Bounded = r.Capacity <= r.Bound
	return r, nil
}
