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

package primcoll

import "github.com/cockroachdb/primcoll/pool"

// DefaultLoadFactor is the load factor used when WithLoadFactor is not
// given.
const DefaultLoadFactor = 0.75

// Option configures a Map or Set while it is being created.
type Option[K comparable] interface {
	apply(c *config[K])
}

type config[K comparable] struct {
	loadFactor  float64
	strategy    HashStrategy[K]
	nilStrategy bool
	seed        uint32
	seedSet     bool
	robinHood   bool
	poolOptions []pool.Option
}

func defaultConfig[K comparable]() config[K] {
	return config[K]{loadFactor: DefaultLoadFactor}
}

type loadFactorOption[K comparable] float64

func (op loadFactorOption[K]) apply(c *config[K]) {
	c.loadFactor = float64(op)
}

// WithLoadFactor sets the fraction of slots that may be occupied before the
// container grows. It must be in (0, 1]. At 1 the container still keeps one
// slot empty.
func WithLoadFactor[K comparable](lf float64) Option[K] {
	return loadFactorOption[K](lf)
}

type strategyOption[K comparable] struct {
	strategy HashStrategy[K]
}

func (op strategyOption[K]) apply(c *config[K]) {
	c.strategy = op.strategy
	c.nilStrategy = op.strategy == nil
}

// WithHashStrategy replaces the default hashing and equality of keys.
func WithHashStrategy[K comparable](s HashStrategy[K]) Option[K] {
	return strategyOption[K]{s}
}

type seedOption[K comparable] uint32

func (op seedOption[K]) apply(c *config[K]) {
	c.seed = uint32(op)
	c.seedSet = true
}

// WithSeed fixes the seed mixed into every hash. The seed is forced odd.
// Containers normally pick a random seed so that copying keys between
// containers in slot order cannot build up long probe chains; fixing it
// makes iteration order reproducible.
func WithSeed[K comparable](seed uint32) Option[K] {
	return seedOption[K](seed | 1)
}

// WithoutPerturbation disables seeding. Slot positions depend on the key
// hash alone.
func WithoutPerturbation[K comparable]() Option[K] {
	return seedOption[K](0)
}

type robinHoodOption[K comparable] struct{}

func (robinHoodOption[K]) apply(c *config[K]) {
	c.robinHood = true
}

// WithRobinHood selects Robin-Hood insertion, which bounds the variance of
// probe lengths under clustered hashes at a small cost per insertion.
func WithRobinHood[K comparable]() Option[K] {
	return robinHoodOption[K]{}
}

type cursorPoolOption[K comparable] []pool.Option

func (op cursorPoolOption[K]) apply(c *config[K]) {
	c.poolOptions = append(c.poolOptions, op...)
}

// WithCursorPool configures the pool that recycles the container's cursors.
// Without it the pool is created on first use from pool.DefaultConfig.
func WithCursorPool[K comparable](options ...pool.Option) Option[K] {
	return cursorPoolOption[K](options)
}
