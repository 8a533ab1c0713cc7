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

// Package primcoll implements open addressing hash maps and sets with low
// per-entry overhead.
//
// # Layout
//
// A container stores its keys and values in parallel arrays whose length is
// a power of two, together with a third array of 32-bit control words. A
// zero control word marks an empty slot. An occupied slot caches the mixed
// hash of its key with the top bit set, which doubles as the occupancy flag,
// as a cheap filter before calling Equal and, under Robin-Hood insertion, as
// the record of the slot the key ideally lives in. Keys and values are stored
// inline; there is no per-entry allocation.
//
// # Probing
//
// Keys are placed by linear probing from their ideal slot. With
// WithRobinHood, an inserted entry takes the slot of any resident that is
// closer to its own ideal slot, which bounds the variance of probe lengths
// and lets unsuccessful lookups stop early.
//
// Removal never leaves tombstones. The entries following the removed one in
// its probe chain are shifted backwards, so a container that sees heavy
// churn never needs to be rebuilt to purge deleted slots.
//
// # Hashing
//
// Hashes are mixed with a per-container random seed before being reduced to
// a slot. Without the seed, copying the keys of one container into another in
// slot order fills the target's slots in order and builds long probe chains.
// The default hashing of a key type is chosen once when the container is
// created: integer kinds go through a 64-bit finalizer, floats hash their bit
// pattern with every NaN collapsed into one key, types implementing Hashable
// hash themselves, and everything else uses hash/maphash. Floats keep -0 and
// +0 as distinct keys.
//
// # Growth
//
// A container grows once it holds more than capacity*loadFactor entries,
// always leaving at least one slot empty. Growth doubles the capacity (or
// more, to fit a bulk insertion) and reinserts every entry using its cached
// hash.
//
// Containers are not safe for concurrent use and must not be copied after
// first use.
package primcoll

import (
	"fmt"
	"iter"
	"strings"

	"github.com/cockroachdb/primcoll/quicksort"
)

// Container is the read side shared by Map and Set, used as the argument of
// bulk removal.
type Container[K comparable] interface {
	Len() int
	Contains(key K) bool
	ForEachKey(fn func(key K) bool) bool
}

// Map is an open addressing hash map from K to V.
type Map[K comparable, V any] struct {
	t table[K, V]
}

// New constructs a Map that holds initialCapacity entries without growing.
// If initialCapacity is 0 no storage is allocated until the first insertion.
func New[K comparable, V any](initialCapacity int, options ...Option[K]) (*Map[K, V], error) {
	m := &Map[K, V]{}
	if err := m.t.init(initialCapacity, options); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew[K comparable, V any](initialCapacity int, options ...Option[K]) *Map[K, V] {
	m, err := New[K, V](initialCapacity, options...)
	if err != nil {
		panic(err)
	}
	return m
}

// Put inserts or overwrites the entry for key. It returns the previous value
// and whether there was one. Put panics with ErrCapacityExceeded if the map
// cannot grow any further.
func (m *Map[K, V]) Put(key K, value V) (old V, replaced bool) {
	return m.t.put(key, value)
}

// PutIfAbsent inserts the entry unless key is already present, and reports
// whether it did.
func (m *Map[K, V]) PutIfAbsent(key K, value V) bool {
	if _, ok := m.t.find(key); ok {
		return false
	}
	m.t.insert(m.t.hashOf(key), key, value)
	return true
}

// Get retrieves the value for key, returning ok=false if the key is not
// present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if i, ok := m.t.find(key); ok {
		return m.t.values[i], true
	}
	return value, false
}

// GetOrDefault returns the value for key, or def if the key is not present.
func (m *Map[K, V]) GetOrDefault(key K, def V) V {
	if i, ok := m.t.find(key); ok {
		return m.t.values[i]
	}
	return def
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.t.find(key)
	return ok
}

// Contains is ContainsKey. It makes a Map usable as a Container.
func (m *Map[K, V]) Contains(key K) bool {
	return m.ContainsKey(key)
}

// Remove deletes the entry for key, returning its value and whether it was
// present.
func (m *Map[K, V]) Remove(key K) (old V, removed bool) {
	return m.t.remove(key)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.t.assigned
}

// Capacity returns the number of slots.
func (m *Map[K, V]) Capacity() int {
	return len(m.t.ctrl)
}

// Clear deletes all entries, keeping the allocated storage.
func (m *Map[K, V]) Clear() {
	m.t.clear()
}

// Release deletes all entries and drops the storage. The map stays usable.
func (m *Map[K, V]) Release() {
	m.t.release()
}

// EnsureCapacity grows the map so that it holds n entries without further
// growth.
func (m *Map[K, V]) EnsureCapacity(n int) error {
	return m.t.ensureCapacity(n)
}

// PutAll copies every entry of other into m and returns the number of keys
// that were not present before.
func (m *Map[K, V]) PutAll(other *Map[K, V]) int {
	return m.PutAllFunc(other, nil)
}

// PutAllFunc copies the entries of other for which pred returns true. A nil
// pred copies everything.
func (m *Map[K, V]) PutAllFunc(other *Map[K, V], pred func(K, V) bool) int {
	before := m.t.assigned
	other.t.forEachWhile(func(k K, v V) bool {
		if pred == nil || pred(k, v) {
			m.t.put(k, v)
		}
		return true
	})
	return m.t.assigned - before
}

// RemoveAll deletes every key contained in keys and returns the number of
// entries removed.
func (m *Map[K, V]) RemoveAll(keys Container[K]) int {
	if keys.Len() >= m.Len() {
		return m.t.removeIf(func(k K, _ V) bool { return keys.Contains(k) })
	}
	before := m.t.assigned
	keys.ForEachKey(func(k K) bool {
		m.t.remove(k)
		return true
	})
	return before - m.t.assigned
}

// RemoveIf deletes every entry for which pred returns true and returns the
// number removed. pred must not modify the map. If pred panics the panic
// propagates; entries for which pred already returned true stay removed.
func (m *Map[K, V]) RemoveIf(pred func(K, V) bool) int {
	return m.t.removeIf(pred)
}

// RetainAll deletes every key not contained in keys.
func (m *Map[K, V]) RetainAll(keys Container[K]) int {
	return m.t.removeIf(func(k K, _ V) bool { return !keys.Contains(k) })
}

// RetainIf deletes every entry for which pred returns false.
func (m *Map[K, V]) RetainIf(pred func(K, V) bool) int {
	return m.t.removeIf(func(k K, v V) bool { return !pred(k, v) })
}

// ForEach calls fn for every entry.
func (m *Map[K, V]) ForEach(fn func(K, V)) {
	m.t.forEachWhile(func(k K, v V) bool {
		fn(k, v)
		return true
	})
}

// ForEachWhile calls fn for every entry until fn returns false. It reports
// whether every entry was visited.
func (m *Map[K, V]) ForEachWhile(fn func(K, V) bool) bool {
	return m.t.forEachWhile(fn)
}

// ForEachKey calls fn for every key until fn returns false.
func (m *Map[K, V]) ForEachKey(fn func(K) bool) bool {
	return m.t.forEachWhile(func(k K, _ V) bool { return fn(k) })
}

// Iterator borrows a cursor over the entries.
func (m *Map[K, V]) Iterator() *Cursor[K, V] {
	return m.t.cursor()
}

// All returns an iterator over the entries. The underlying cursor is
// released when the loop ends, including by break.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return m.t.all()
}

// Keys returns an iterator over the keys.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return m.t.keysSeq()
}

// Values returns an iterator over the values.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return m.t.valuesSeq()
}

// KeySlice returns the keys in slot order.
func (m *Map[K, V]) KeySlice() []K {
	return m.t.keySlice()
}

// ValueSlice returns the values in slot order.
func (m *Map[K, V]) ValueSlice() []V {
	r := make([]V, 0, m.t.assigned)
	for i, c := range m.t.ctrl {
		if c != 0 {
			r = append(r, m.t.values[i])
		}
	}
	return r
}

// KeysSorted returns the keys sorted by cmp.
func (m *Map[K, V]) KeysSorted(cmp func(a, b K) int) []K {
	keys := m.t.keySlice()
	quicksort.SortFunc(keys, cmp)
	return keys
}

// EqualFunc reports whether m and other have equivalent strategies and the
// same keys, with values that are equal according to eq.
func (m *Map[K, V]) EqualFunc(other *Map[K, V], eq func(a, b V) bool) bool {
	if m == other {
		return true
	}
	if !m.t.sameShape(&other.t) {
		return false
	}
	return m.t.forEachWhile(func(k K, v V) bool {
		j, ok := other.t.find(k)
		return ok && eq(v, other.t.values[j])
	})
}

// Equal reports whether a and b hold equal entries. Float values are
// compared like float keys: NaN equals NaN.
func Equal[K, V comparable](a, b *Map[K, V]) bool {
	ops := defaultKeyOps[V]()
	eq := ops.equal
	if eq == nil {
		eq = func(x, y V) bool { return x == y }
	}
	return a.EqualFunc(b, eq)
}

// HashCode returns a hash of the entries of m that does not depend on their
// order or on the seed of m. Maps that are Equal have the same HashCode.
func HashCode[K, V comparable](m *Map[K, V]) uint32 {
	hv := defaultKeyOps[V]().hash
	var h uint32
	m.t.forEachWhile(func(k K, v V) bool {
		h += mix32(m.t.hash(k)) ^ hv(v)
		return true
	})
	return h
}

// Clone returns a copy of m with the same options. The copy has its own
// cursor pool.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{}
	m.t.cloneInto(&c.t)
	return c
}

// String formats the entries as [k1=>v1, k2=>v2], ordered by key.
func (m *Map[K, V]) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, k := range m.t.sortedKeys() {
		if i > 0 {
			buf.WriteString(", ")
		}
		j, _ := m.t.find(k)
		fmt.Fprintf(&buf, "%v=>%v", k, m.t.values[j])
	}
	buf.WriteByte(']')
	return buf.String()
}
