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

import (
	"iter"

	"github.com/cockroachdb/primcoll/pool"
)

// Cursor walks the entries of a Map or Set in slot order. Cursors are
// recycled through a pool owned by the container:
//
//	c := m.Iterator()
//	for c.Next() {
//	  fmt.Println(c.Key(), c.Value())
//	}
//
// A cursor that reaches the end returns itself to the pool. A traversal
// abandoned early must call Release. A cursor must not be used after it has
// been released, either way.
//
// Cursors see the slot arrays as they were when the traversal started.
// Mutating the container during a traversal may cause entries to be skipped
// or seen twice.
type Cursor[K comparable, V any] struct {
	pool.Entry

	t      *table[K, V]
	keys   []K
	values []V
	ctrl   []uint32
	slot   int
	key    K
	value  V
}

// SetCursor is the cursor type of a Set.
type SetCursor[K comparable] = Cursor[K, struct{}]

// Next advances to the next entry. It returns false, and releases the
// cursor, once the entries are exhausted.
func (c *Cursor[K, V]) Next() bool {
	switch c.State() {
	case pool.Borrowed, pool.Detached:
	default:
		return false
	}
	for c.slot++; c.slot < len(c.ctrl); c.slot++ {
		if c.ctrl[c.slot] != 0 {
			c.key, c.value = c.keys[c.slot], c.values[c.slot]
			return true
		}
	}
	c.MarkExhausted()
	c.Release()
	return false
}

// Key returns the key of the current entry.
func (c *Cursor[K, V]) Key() K {
	return c.key
}

// Value returns the value of the current entry.
func (c *Cursor[K, V]) Value() V {
	return c.value
}

// Index returns the slot of the current entry.
func (c *Cursor[K, V]) Index() int {
	return c.slot
}

// Release returns the cursor to its pool. It is idempotent.
func (c *Cursor[K, V]) Release() {
	if c.t != nil && c.t.cursors != nil {
		c.t.cursors.Release(c)
	}
}

func (c *Cursor[K, V]) reset() {
	var zeroK K
	var zeroV V
	c.keys, c.values, c.ctrl = nil, nil, nil
	c.key, c.value = zeroK, zeroV
	c.slot = -1
}

func (t *table[K, V]) all() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		c := t.cursor()
		defer c.Release()
		for c.Next() {
			if !yield(c.key, c.value) {
				return
			}
		}
	}
}

func (t *table[K, V]) keysSeq() iter.Seq[K] {
	return func(yield func(K) bool) {
		c := t.cursor()
		defer c.Release()
		for c.Next() {
			if !yield(c.key) {
				return
			}
		}
	}
}

func (t *table[K, V]) valuesSeq() iter.Seq[V] {
	return func(yield func(V) bool) {
		c := t.cursor()
		defer c.Release()
		for c.Next() {
			if !yield(c.value) {
				return
			}
		}
	}
}
