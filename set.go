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
	"fmt"
	"iter"
	"strings"

	"github.com/cockroachdb/primcoll/quicksort"
)

// Set is an open addressing hash set. It shares its engine with Map; the
// value array has zero width.
type Set[K comparable] struct {
	t table[K, struct{}]
}

// NewSet constructs a Set that holds initialCapacity keys without growing.
func NewSet[K comparable](initialCapacity int, options ...Option[K]) (*Set[K], error) {
	s := &Set[K]{}
	if err := s.t.init(initialCapacity, options); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNewSet is like NewSet but panics on error.
func MustNewSet[K comparable](initialCapacity int, options ...Option[K]) *Set[K] {
	s, err := NewSet[K](initialCapacity, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// SetOf returns a Set with the default options holding keys.
func SetOf[K comparable](keys ...K) *Set[K] {
	s := MustNewSet[K](len(keys))
	s.AddSlice(keys...)
	return s
}

// Add inserts key and reports whether it was not already present.
func (s *Set[K]) Add(key K) bool {
	if _, ok := s.t.find(key); ok {
		return false
	}
	s.t.insert(s.t.hashOf(key), key, struct{}{})
	return true
}

// AddSlice inserts keys and returns the number that were not already
// present.
func (s *Set[K]) AddSlice(keys ...K) int {
	if err := s.t.ensureCapacity(s.t.assigned + len(keys)); err != nil {
		panic(err)
	}
	var added int
	for _, k := range keys {
		if s.Add(k) {
			added++
		}
	}
	return added
}

// AddAll inserts every key of other.
func (s *Set[K]) AddAll(other Container[K]) int {
	return s.AddAllFunc(other, nil)
}

// AddAllFunc inserts the keys of other for which pred returns true. A nil
// pred inserts everything.
func (s *Set[K]) AddAllFunc(other Container[K], pred func(K) bool) int {
	before := s.t.assigned
	other.ForEachKey(func(k K) bool {
		if pred == nil || pred(k) {
			s.Add(k)
		}
		return true
	})
	return s.t.assigned - before
}

// Contains reports whether key is present.
func (s *Set[K]) Contains(key K) bool {
	_, ok := s.t.find(key)
	return ok
}

// Remove deletes key and reports whether it was present.
func (s *Set[K]) Remove(key K) bool {
	_, ok := s.t.remove(key)
	return ok
}

// RemoveAll deletes every key contained in other and returns the number
// removed.
func (s *Set[K]) RemoveAll(other Container[K]) int {
	if other.Len() >= s.Len() {
		return s.t.removeIf(func(k K, _ struct{}) bool { return other.Contains(k) })
	}
	before := s.t.assigned
	other.ForEachKey(func(k K) bool {
		s.t.remove(k)
		return true
	})
	return before - s.t.assigned
}

// RemoveIf deletes every key for which pred returns true. pred must not
// modify the set. If pred panics the panic propagates; keys for which pred
// already returned true stay removed.
func (s *Set[K]) RemoveIf(pred func(K) bool) int {
	return s.t.removeIf(func(k K, _ struct{}) bool { return pred(k) })
}

// RetainAll deletes every key not contained in other.
func (s *Set[K]) RetainAll(other Container[K]) int {
	return s.t.removeIf(func(k K, _ struct{}) bool { return !other.Contains(k) })
}

// RetainIf deletes every key for which pred returns false.
func (s *Set[K]) RetainIf(pred func(K) bool) int {
	return s.t.removeIf(func(k K, _ struct{}) bool { return !pred(k) })
}

// Len returns the number of keys.
func (s *Set[K]) Len() int {
	return s.t.assigned
}

// Capacity returns the number of slots.
func (s *Set[K]) Capacity() int {
	return len(s.t.ctrl)
}

// Clear deletes all keys, keeping the allocated storage.
func (s *Set[K]) Clear() {
	s.t.clear()
}

// Release deletes all keys and drops the storage.
func (s *Set[K]) Release() {
	s.t.release()
}

// EnsureCapacity grows the set so that it holds n keys without further
// growth.
func (s *Set[K]) EnsureCapacity(n int) error {
	return s.t.ensureCapacity(n)
}

// ForEach calls fn for every key.
func (s *Set[K]) ForEach(fn func(K)) {
	s.t.forEachWhile(func(k K, _ struct{}) bool {
		fn(k)
		return true
	})
}

// ForEachWhile calls fn for every key until fn returns false. It reports
// whether every key was visited.
func (s *Set[K]) ForEachWhile(fn func(K) bool) bool {
	return s.t.forEachWhile(func(k K, _ struct{}) bool { return fn(k) })
}

// ForEachKey is ForEachWhile. It makes a Set usable as a Container.
func (s *Set[K]) ForEachKey(fn func(K) bool) bool {
	return s.ForEachWhile(fn)
}

// Iterator borrows a cursor over the keys.
func (s *Set[K]) Iterator() *SetCursor[K] {
	return s.t.cursor()
}

// All returns an iterator over the keys.
func (s *Set[K]) All() iter.Seq[K] {
	return s.t.keysSeq()
}

// Slice returns the keys in slot order.
func (s *Set[K]) Slice() []K {
	return s.t.keySlice()
}

// Sorted returns the keys sorted by cmp.
func (s *Set[K]) Sorted(cmp func(a, b K) int) []K {
	keys := s.t.keySlice()
	quicksort.SortFunc(keys, cmp)
	return keys
}

// Equal reports whether s and other have equivalent strategies and the same
// keys.
func (s *Set[K]) Equal(other *Set[K]) bool {
	if s == other {
		return true
	}
	if !s.t.sameShape(&other.t) {
		return false
	}
	return s.t.forEachWhile(func(k K, _ struct{}) bool {
		_, ok := other.t.find(k)
		return ok
	})
}

// HashCode returns a hash of the keys that does not depend on their order or
// on the seed of s.
func (s *Set[K]) HashCode() uint32 {
	var h uint32
	s.t.forEachWhile(func(k K, _ struct{}) bool {
		h += mix32(s.t.hash(k))
		return true
	})
	return h
}

// Clone returns a copy of s with the same options.
func (s *Set[K]) Clone() *Set[K] {
	c := &Set[K]{}
	s.t.cloneInto(&c.t)
	return c
}

// String formats the keys as [k1, k2], in their natural order.
func (s *Set[K]) String() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, k := range s.t.sortedKeys() {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprint(&buf, k)
	}
	buf.WriteByte(']')
	return buf.String()
}
