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
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/primcoll/pool"
	"github.com/cockroachdb/primcoll/quicksort"
)

const (
	debug = false

	// MaxCapacity is the largest number of slots a container may allocate.
	MaxCapacity = 1 << 30
	minCapacity = 4

	// occupiedBit is set in the ctrl word of every occupied slot so that an
	// occupied slot is never 0, even for a key whose mixed hash is 0.
	occupiedBit = 1 << 31
)

// table is the open addressing engine shared by Map and Set.
//
// ctrl[i] is 0 for an empty slot. An occupied slot caches the mixed and
// seeded hash of its key with occupiedBit set, so ctrl[i]&mask is the slot
// the key ideally lives in and (i-ctrl[i])&mask is its probe distance.
// Caching the hash lets growth reinsert entries without rehashing keys and
// filters most unequal keys before calling the strategy's Equal.
//
// The table always keeps at least one empty slot, which terminates every
// probe sequence.
type table[K comparable, V any] struct {
	keys   []K
	values []V
	ctrl   []uint32

	// assigned is the number of occupied slots.
	assigned int
	// threshold is the maximum value of assigned before the table grows.
	threshold  int
	mask       uint32
	seed       uint32
	loadFactor float64
	robinHood  bool

	hash     func(K) uint32
	equal    func(a, b K) bool
	compare  func(a, b K) int
	strategy HashStrategy[K]

	poolOptions []pool.Option
	cursors     *pool.Pool[*Cursor[K, V]]
}

func (t *table[K, V]) init(initialCapacity int, options []Option[K]) error {
	if initialCapacity < 0 {
		return errors.Wrapf(ErrInvalidCapacity, "initial capacity %d", initialCapacity)
	}
	c := defaultConfig[K]()
	for _, op := range options {
		op.apply(&c)
	}
	if !(c.loadFactor > 0 && c.loadFactor <= 1) {
		return errors.Wrapf(ErrInvalidLoadFactor, "load factor %v", c.loadFactor)
	}
	if c.nilStrategy {
		return ErrNilStrategy
	}

	ops := defaultKeyOps[K]()
	t.hash, t.equal, t.compare = ops.hash, ops.equal, ops.compare
	if c.strategy != nil {
		t.strategy = c.strategy
		t.hash, t.equal = c.strategy.Hash, c.strategy.Equal
	}
	if c.seedSet {
		t.seed = c.seed
	} else {
		t.seed = rand.Uint32() | 1
	}
	t.loadFactor = c.loadFactor
	t.robinHood = c.robinHood
	t.poolOptions = c.poolOptions
	if len(t.poolOptions) > 0 {
		if err := t.initCursors(); err != nil {
			return err
		}
	}

	if initialCapacity > 0 {
		capacity, err := capacityFor(initialCapacity, t.loadFactor)
		if err != nil {
			return err
		}
		t.allocate(capacity)
	}
	t.checkInvariants()
	return nil
}

// thresholdFor returns the number of entries a table of the given capacity
// holds before growing.
func thresholdFor(capacity int, lf float64) int {
	return min(int(float64(capacity)*lf), capacity-1)
}

// capacityFor returns the smallest power of two capacity that holds n
// entries without growing.
func capacityFor(n int, lf float64) (int, error) {
	capacity := minCapacity
	for thresholdFor(capacity, lf) < n {
		if capacity >= MaxCapacity {
			return 0, errors.Wrapf(ErrCapacityExceeded, "%d entries at load factor %v", n, lf)
		}
		capacity <<= 1
	}
	return capacity, nil
}

func (t *table[K, V]) allocate(capacity int) {
	t.keys = make([]K, capacity)
	t.values = make([]V, capacity)
	t.ctrl = make([]uint32, capacity)
	t.mask = uint32(capacity - 1)
	t.threshold = thresholdFor(capacity, t.loadFactor)
}

func (t *table[K, V]) hashOf(key K) uint32 {
	return mix32(t.hash(key)^t.seed) | occupiedBit
}

func (t *table[K, V]) keyEqual(a, b K) bool {
	if t.equal == nil {
		return a == b
	}
	return t.equal(a, b)
}

// find returns the slot holding key.
func (t *table[K, V]) find(key K) (int, bool) {
	if t.assigned == 0 {
		return -1, false
	}
	h := t.hashOf(key)
	mask := t.mask
	i := h & mask
	for dist := uint32(0); ; dist++ {
		c := t.ctrl[i]
		if c == 0 {
			return -1, false
		}
		if c == h && t.keyEqual(t.keys[i], key) {
			return int(i), true
		}
		// A resident closer to its ideal slot than we are to ours means the
		// key would have displaced it on insertion.
		if t.robinHood && (i-c)&mask < dist {
			return -1, false
		}
		i = (i + 1) & mask
	}
}

func (t *table[K, V]) put(key K, value V) (old V, replaced bool) {
	if i, ok := t.find(key); ok {
		if debug {
			fmt.Printf("put(updating): index=%d key=%v\n", i, key)
		}
		old = t.values[i]
		t.values[i] = value
		return old, true
	}
	t.insert(t.hashOf(key), key, value)
	return old, false
}

// insert adds an entry known not to be in the table.
func (t *table[K, V]) insert(h uint32, key K, value V) {
	if t.assigned+1 > t.threshold {
		t.grow()
	}
	t.uncheckedPut(h, key, value)
	t.assigned++
	t.checkInvariants()
}

// uncheckedPut places an entry without checking for an existing key or for
// room in the table.
func (t *table[K, V]) uncheckedPut(h uint32, key K, value V) {
	mask := t.mask
	i := h & mask
	if debug {
		fmt.Printf("put(inserting): key=%v ideal=%d\n", key, i)
	}
	if !t.robinHood {
		for t.ctrl[i] != 0 {
			i = (i + 1) & mask
		}
		t.ctrl[i], t.keys[i], t.values[i] = h, key, value
		return
	}

	for dist := uint32(0); ; dist++ {
		c := t.ctrl[i]
		if c == 0 {
			t.ctrl[i], t.keys[i], t.values[i] = h, key, value
			return
		}
		if d := (i - c) & mask; d < dist {
			// Take the slot from the richer resident and continue placing it.
			if debug {
				fmt.Printf("put(displacing): index=%d key=%v dist=%d<%d\n", i, t.keys[i], d, dist)
			}
			t.ctrl[i], h = h, c
			t.keys[i], key = key, t.keys[i]
			t.values[i], value = value, t.values[i]
			dist = d
		}
		i = (i + 1) & mask
	}
}

func (t *table[K, V]) grow() {
	capacity, err := capacityFor(t.assigned+1, t.loadFactor)
	if err != nil {
		panic(err)
	}
	t.rehash(max(capacity, 2*len(t.ctrl)))
}

// rehash moves every entry into newly allocated arrays of the given
// capacity. The cached hashes are reused.
func (t *table[K, V]) rehash(capacity int) {
	if debug {
		fmt.Printf("rehash: %d -> %d (assigned=%d)\n", len(t.ctrl), capacity, t.assigned)
	}
	oldKeys, oldValues, oldCtrl := t.keys, t.values, t.ctrl
	t.allocate(capacity)
	for i, c := range oldCtrl {
		if c != 0 {
			t.uncheckedPut(c, oldKeys[i], oldValues[i])
		}
	}
	t.checkInvariants()
}

func (t *table[K, V]) ensureCapacity(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrInvalidCapacity, "expected elements %d", n)
	}
	if n <= t.threshold {
		return nil
	}
	capacity, err := capacityFor(n, t.loadFactor)
	if err != nil {
		return err
	}
	if capacity > len(t.ctrl) {
		t.rehash(capacity)
	}
	return nil
}

func (t *table[K, V]) remove(key K) (old V, removed bool) {
	i, ok := t.find(key)
	if !ok {
		return old, false
	}
	if debug {
		fmt.Printf("remove: index=%d key=%v\n", i, key)
	}
	old = t.values[i]
	t.removeAt(uint32(i))
	t.checkInvariants()
	return old, true
}

// removeAt empties slot gap and shifts later members of its probe chain
// backwards so that no lookup stops early at the hole.
func (t *table[K, V]) removeAt(gap uint32) {
	mask := t.mask
	if t.robinHood {
		// Every entry up to the next empty slot or the next entry in its ideal
		// slot moves back by one.
		for {
			j := (gap + 1) & mask
			c := t.ctrl[j]
			if c == 0 || (j-c)&mask == 0 {
				break
			}
			t.move(j, gap)
			gap = j
		}
	} else {
		// An entry at j may fill the gap if the gap lies cyclically between its
		// ideal slot and j.
		for j := (gap + 1) & mask; t.ctrl[j] != 0; j = (j + 1) & mask {
			c := t.ctrl[j]
			if (j-c)&mask >= (j-gap)&mask {
				t.move(j, gap)
				gap = j
			}
		}
	}
	var zeroK K
	var zeroV V
	t.ctrl[gap], t.keys[gap], t.values[gap] = 0, zeroK, zeroV
	t.assigned--
}

func (t *table[K, V]) move(from, to uint32) {
	t.ctrl[to], t.keys[to], t.values[to] = t.ctrl[from], t.keys[from], t.values[from]
}

// removeIf removes every entry for which pred returns true and returns the
// number removed. The scan starts just past an empty slot so that entries
// shifted back by a removal are still ahead of the scan, visiting every entry
// exactly once. If pred panics, entries already removed stay removed and the
// table remains consistent.
func (t *table[K, V]) removeIf(pred func(K, V) bool) int {
	if t.assigned == 0 {
		return 0
	}
	before := t.assigned
	mask := t.mask
	start := uint32(0)
	for t.ctrl[start] != 0 {
		start++
	}
	for i := (start + 1) & mask; i != start; {
		if t.ctrl[i] != 0 && pred(t.keys[i], t.values[i]) {
			t.removeAt(i)
			continue
		}
		i = (i + 1) & mask
	}
	t.checkInvariants()
	return before - t.assigned
}

func (t *table[K, V]) forEachWhile(fn func(K, V) bool) bool {
	keys, values, ctrl := t.keys, t.values, t.ctrl
	for i, c := range ctrl {
		if c != 0 && !fn(keys[i], values[i]) {
			return false
		}
	}
	return true
}

func (t *table[K, V]) keySlice() []K {
	r := make([]K, 0, t.assigned)
	for i, c := range t.ctrl {
		if c != 0 {
			r = append(r, t.keys[i])
		}
	}
	return r
}

func (t *table[K, V]) clear() {
	clear(t.ctrl)
	clear(t.keys)
	clear(t.values)
	t.assigned = 0
}

// release drops the slot arrays. The table allocates again on the next
// insertion.
func (t *table[K, V]) release() {
	t.keys, t.values, t.ctrl = nil, nil, nil
	t.assigned, t.threshold, t.mask = 0, 0, 0
}

// cloneInto copies the table into c, which shares nothing mutable with t.
func (t *table[K, V]) cloneInto(c *table[K, V]) {
	*c = *t
	c.keys = slices.Clone(t.keys)
	c.values = slices.Clone(t.values)
	c.ctrl = slices.Clone(t.ctrl)
	c.cursors = nil
}

// sameShape reports whether t and o have the same size and equivalent
// strategies, the precondition for content equality.
func (t *table[K, V]) sameShape(o *table[K, V]) bool {
	return t.assigned == o.assigned && sameStrategy(t.strategy, o.strategy)
}

func (t *table[K, V]) initCursors() error {
	options := append(slices.Clip(t.poolOptions), pool.WithReset(func(c *Cursor[K, V]) {
		c.reset()
	}))
	p, err := pool.New(func() *Cursor[K, V] { return &Cursor[K, V]{t: t} }, options...)
	if err != nil {
		return errors.Wrap(err, "cursor pool")
	}
	t.cursors = p
	return nil
}

// cursor borrows a cursor positioned before the first slot.
func (t *table[K, V]) cursor() *Cursor[K, V] {
	if t.cursors == nil {
		if err := t.initCursors(); err != nil {
			panic(err)
		}
	}
	c := t.cursors.Borrow()
	c.keys, c.values, c.ctrl = t.keys, t.values, t.ctrl
	c.slot = -1
	return c
}

// sortedKeys returns the keys in their natural order, or in the order of
// their formatted representation for key types without one.
func (t *table[K, V]) sortedKeys() []K {
	keys := t.keySlice()
	if t.compare != nil {
		quicksort.SortFunc(keys, t.compare)
	} else {
		quicksort.SortFunc(keys, func(a, b K) int {
			return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		})
	}
	return keys
}

func (t *table[K, V]) checkInvariants() {
	if invariants {
		if err := t.verify(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, t.debugString()))
		}
	}
}

// verify checks the structural invariants of the table.
func (t *table[K, V]) verify() error {
	n := len(t.ctrl)
	if len(t.keys) != n || len(t.values) != n {
		return errors.Newf("array lengths differ: ctrl=%d keys=%d values=%d", n, len(t.keys), len(t.values))
	}
	if n == 0 {
		if t.assigned != 0 || t.threshold != 0 {
			return errors.Newf("unallocated table with assigned=%d threshold=%d", t.assigned, t.threshold)
		}
		return nil
	}
	if n&(n-1) != 0 || n < minCapacity || n > MaxCapacity {
		return errors.Newf("invalid capacity %d", n)
	}
	if t.mask != uint32(n-1) {
		return errors.Newf("mask %d does not match capacity %d", t.mask, n)
	}
	if expected := thresholdFor(n, t.loadFactor); t.threshold != expected {
		return errors.Newf("threshold %d, expected %d", t.threshold, expected)
	}

	var used int
	for i, c := range t.ctrl {
		if c == 0 {
			continue
		}
		used++
		if h := t.hashOf(t.keys[i]); h != c {
			return errors.Newf("slot %d: cached hash %08x, expected %08x", i, c, h)
		}
		if j, ok := t.find(t.keys[i]); !ok || j != i {
			return errors.Newf("slot %d: key %v found at %d (ok=%t)", i, t.keys[i], j, ok)
		}
		if t.robinHood {
			next := (uint32(i) + 1) & t.mask
			if cn := t.ctrl[next]; cn != 0 && (next-cn)&t.mask > (uint32(i)-c)&t.mask+1 {
				return errors.Newf("slot %d: probe distance jumps from slot %d", next, i)
			}
		}
	}
	if used != t.assigned {
		return errors.Newf("found %d occupied slots, but assigned is %d", used, t.assigned)
	}
	if t.assigned > t.threshold {
		return errors.Newf("assigned %d exceeds threshold %d", t.assigned, t.threshold)
	}
	return nil
}

func (t *table[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  assigned=%d  threshold=%d  robin-hood=%t\n",
		len(t.ctrl), t.assigned, t.threshold, t.robinHood)
	for i, c := range t.ctrl {
		if c == 0 {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
			continue
		}
		fmt.Fprintf(&buf, "  %4d: %v [ctrl=%08x ideal=%d dist=%d]\n",
			i, t.keys[i], c, c&t.mask, (uint32(i)-c)&t.mask)
	}
	return buf.String()
}
