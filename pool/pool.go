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

// Package pool implements a bounded object pool for reusable traversal
// cursors.
//
// A Pool tracks every object it has handed out, idle or borrowed. When no
// idle object is available the pool grows by its initial size. Once the
// tracked population reaches MaxGrowthFactor*InitialSize the pool stops
// growing and instead detaches the InitialSize oldest objects, replacing them
// with fresh ones. A caller that borrows and never releases therefore leaks
// at most a bounded amount of memory: the detached objects become garbage as
// soon as the caller drops them.
//
// Objects carry their pool bookkeeping in an embedded Entry:
//
//	type cursor struct {
//	  pool.Entry
//	  pos int
//	}
//
//	p := pool.MustNew(func() *cursor { return &cursor{} })
//	c := p.Borrow()
//	defer p.Release(c)
//
// A Pool is NOT goroutine-safe.
package pool

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"
)

// State is the lifecycle state of a pooled object.
type State uint8

const (
	// Idle objects sit in the pool waiting to be borrowed. The zero value of
	// an Entry that was never pooled also reports Idle but has no owner.
	Idle State = iota
	// Borrowed objects are attached to a caller.
	Borrowed
	// Exhausted objects have finished their traversal but were not yet
	// returned to the pool.
	Exhausted
	// Detached objects were evicted by the pool while borrowed. Releasing
	// them is a no-op.
	Detached
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Borrowed:
		return "borrowed"
	case Exhausted:
		return "exhausted"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Entry holds the pool bookkeeping for an object. Embed it in the pooled
// type; the zero value is ready to use.
type Entry struct {
	owner any
	index int32
	state State
}

// State returns the lifecycle state of the entry.
func (e *Entry) State() State {
	return e.state
}

// MarkExhausted transitions a borrowed entry to Exhausted. It is a no-op in
// any other state.
func (e *Entry) MarkExhausted() {
	if e.state == Borrowed {
		e.state = Exhausted
	}
}

func (e *Entry) poolEntry() *Entry {
	return e
}

// Pooled is implemented by any pointer type embedding Entry.
type Pooled interface {
	poolEntry() *Entry
}

// Stats is a point in time view of a pool.
type Stats struct {
	Capacity    int
	Idle        int
	Borrowed    int
	Borrows     uint64
	Releases    uint64
	Allocations uint64
	Discards    uint64
}

// Pool is a bounded pool of T. See the package documentation for the growth
// and discard policy.
type Pool[T Pooled] struct {
	alloc  func() T
	reset  func(T)
	cfg    Config
	logger hclog.Logger
	m      *Metrics

	// objs holds every tracked object. Indexes are stable: eviction replaces
	// objects in place.
	objs []T
	// free is a stack of indexes into objs of idle objects.
	free []int32
	// evict is the index of the oldest object in objs. Replaced objects
	// become the newest, so the eviction cursor rotates.
	evict int

	stats Stats
}

// Option configures a Pool while it is being created.
type Option interface {
	apply(o *poolOptions)
}

type poolOptions struct {
	cfg    Config
	logger hclog.Logger
	m      *Metrics
	reset  func(any)
}

type configOption Config

func (op configOption) apply(o *poolOptions) {
	o.cfg = Config(op)
}

// WithConfig overrides the process-wide default configuration.
func WithConfig(cfg Config) Option {
	return configOption(cfg)
}

type loggerOption struct {
	logger hclog.Logger
}

func (op loggerOption) apply(o *poolOptions) {
	o.logger = op.logger
}

// WithLogger sets the logger used to report growth and eviction.
func WithLogger(logger hclog.Logger) Option {
	return loggerOption{logger}
}

type metricsOption struct {
	m *Metrics
}

func (op metricsOption) apply(o *poolOptions) {
	o.m = op.m
}

// WithMetrics attaches prometheus metrics to the pool. A Metrics may be
// shared by several pools.
func WithMetrics(m *Metrics) Option {
	return metricsOption{m}
}

type resetOption struct {
	reset func(any)
}

func (op resetOption) apply(o *poolOptions) {
	o.reset = op.reset
}

// WithReset registers a function called on every object as it returns to
// the pool.
func WithReset[T Pooled](reset func(T)) Option {
	return resetOption{func(v any) { reset(v.(T)) }}
}

// New constructs a pool which uses alloc to create objects. The pool is
// populated with InitialSize objects.
func New[T Pooled](alloc func() T, options ...Option) (*Pool[T], error) {
	if alloc == nil {
		return nil, errors.New("pool: nil allocation function")
	}
	o := poolOptions{cfg: DefaultConfig()}
	for _, op := range options {
		op.apply(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}

	p := &Pool[T]{
		alloc:  alloc,
		cfg:    o.cfg,
		logger: o.logger.Named("pool"),
		m:      o.m,
	}
	if o.reset != nil {
		reset := o.reset
		p.reset = func(v T) { reset(v) }
	}
	p.grow(0)
	return p, nil
}

// MustNew is like New but panics on error.
func MustNew[T Pooled](alloc func() T, options ...Option) *Pool[T] {
	p, err := New(alloc, options...)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the configuration the pool was built with.
func (p *Pool[T]) Config() Config {
	return p.cfg
}

// Cap returns the number of objects tracked by the pool, idle or borrowed.
func (p *Pool[T]) Cap() int {
	return len(p.objs)
}

// MaxCap returns the bound on Cap.
func (p *Pool[T]) MaxCap() int {
	return p.cfg.maxCap()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	s := p.stats
	s.Capacity = len(p.objs)
	s.Idle = len(p.free)
	s.Borrowed = len(p.objs) - len(p.free)
	return s
}

// Borrow returns an idle object, growing the pool or evicting the oldest
// borrowed objects if none is available. Borrow never fails.
func (p *Pool[T]) Borrow() T {
	if len(p.free) == 0 {
		if len(p.objs) < p.cfg.maxCap() {
			p.grow(0)
		} else {
			p.replaceOldest()
		}
	}
	i := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	v := p.objs[i]
	v.poolEntry().state = Borrowed
	p.stats.Borrows++
	p.m.borrowed()
	return v
}

// Release returns v to the pool. Releasing an idle object, an object evicted
// by the pool or an object owned by another pool is a no-op.
func (p *Pool[T]) Release(v T) {
	e := v.poolEntry()
	if e.owner != p || (e.state != Borrowed && e.state != Exhausted) {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	e.state = Idle
	p.free = append(p.free, e.index)
	p.stats.Releases++
	p.m.released()
}

// Reserve grows the pool by InitialSize+additional objects, clamped to
// MaxCap. It is a no-op once the pool is at its bound.
func (p *Pool[T]) Reserve(additional int) {
	if additional < 0 {
		additional = 0
	}
	p.grow(additional)
}

func (p *Pool[T]) grow(additional int) {
	n := p.cfg.InitialSize + additional
	if limit := p.cfg.maxCap(); len(p.objs)+n > limit {
		n = limit - len(p.objs)
	}
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		p.objs = append(p.objs, p.newObj(int32(len(p.objs))))
		p.free = append(p.free, int32(len(p.objs)-1))
	}
	p.m.setCapacity(len(p.objs))
	p.logger.Debug("grew", "added", n, "capacity", len(p.objs), "max", p.cfg.maxCap())
}

// replaceOldest detaches up to InitialSize of the oldest objects and puts
// fresh idle objects in their slots. Only called when every tracked object
// is borrowed.
func (p *Pool[T]) replaceOldest() {
	n := p.cfg.InitialSize
	if n > len(p.objs) {
		n = len(p.objs)
	}
	for k := 0; k < n; k++ {
		i := p.evict
		old := p.objs[i].poolEntry()
		old.owner = nil
		old.state = Detached
		p.objs[i] = p.newObj(int32(i))
		p.free = append(p.free, int32(i))
		p.evict = (p.evict + 1) % len(p.objs)
	}
	p.stats.Discards += uint64(n)
	p.m.discarded(n)
	p.logger.Debug("replaced leaked objects", "discarded", n, "capacity", len(p.objs))
}

func (p *Pool[T]) newObj(index int32) T {
	v := p.alloc()
	e := v.poolEntry()
	e.owner = p
	e.index = index
	e.state = Idle
	p.stats.Allocations++
	p.m.allocated()
	return v
}
