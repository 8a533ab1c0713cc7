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
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct{ x, y int }

func (p point) Hash() uint32 { return uint32(p.x*31 + p.y) }
func (p point) Equal(o point) bool { return p == o }

// caseless compares equal to any string differing only in case.
type caseless string

func (c caseless) Hash() uint32 {
	return FoldedStringStrategy{}.Hash(string(c))
}

func (c caseless) Equal(o caseless) bool {
	return strings.ToLower(string(c)) == strings.ToLower(string(o))
}

type node struct{ id int }

func (n *node) Hash() uint32 { return uint32(n.id) }
func (n *node) Equal(o *node) bool { return n.id == o.id }

type userID int16

func TestDefaultKeyOps(t *testing.T) {
	i8 := defaultKeyOps[int8]()
	require.Equal(t, -1, i8.compare(-1, 1))
	require.Nil(t, i8.equal)

	u8 := defaultKeyOps[uint8]()
	require.Equal(t, 1, u8.compare(255, 1))

	u := defaultKeyOps[userID]()
	require.Equal(t, -1, u.compare(-5, 3))
	require.Equal(t, u.hash(7), u.hash(7))
	require.NotEqual(t, u.hash(7), u.hash(8))

	b := defaultKeyOps[bool]()
	require.Equal(t, -1, b.compare(false, true))

	f := defaultKeyOps[float64]()
	require.True(t, f.equal(nan(1), nan(2)))
	require.Equal(t, f.hash(nan(1)), f.hash(math.NaN()))
	require.False(t, f.equal(0, math.Copysign(0, -1)))
	require.Equal(t, -1, f.compare(math.Copysign(0, -1), 0))
	require.Equal(t, 1, f.compare(math.NaN(), math.Inf(1)))

	f32 := defaultKeyOps[float32]()
	require.True(t, f32.equal(float32(math.NaN()), math.Float32frombits(0x7fc00123)))

	s := defaultKeyOps[string]()
	require.Equal(t, -1, s.compare("a", "b"))
	require.Equal(t, s.hash("abc"), s.hash(strings.Clone("abc")))

	st := defaultKeyOps[struct{ a, b int }]()
	require.Nil(t, st.compare)
	require.Equal(t, st.hash(struct{ a, b int }{1, 2}), st.hash(struct{ a, b int }{1, 2}))

	p := defaultKeyOps[point]()
	require.Equal(t, point{1, 2}.Hash(), p.hash(point{1, 2}))
	require.NotNil(t, p.equal)
}

func TestMix(t *testing.T) {
	require.EqualValues(t, 0, mix32(0))
	require.NotEqual(t, mix32(1), mix32(2))
	require.NotEqual(t, mix64(1), mix64(1<<32))
}

func TestHashableKeys(t *testing.T) {
	m := MustNew[caseless, int](0)
	m.Put("Foo", 1)
	old, replaced := m.Put("FOO", 2)
	require.True(t, replaced)
	require.Equal(t, 1, old)
	require.Equal(t, 1, m.Len())
	require.True(t, m.ContainsKey("foo"))

	ptrs := MustNew[*node, string](0)
	ptrs.Put(&node{1}, "a")
	ptrs.Put(&node{1}, "b")
	require.Equal(t, 1, ptrs.Len())
	ptrs.Put(nil, "nil")
	require.Equal(t, 2, ptrs.Len())
	v, ok := ptrs.Get(nil)
	require.True(t, ok)
	require.Equal(t, "nil", v)
	v, _ = ptrs.Get(&node{1})
	require.Equal(t, "b", v)
	require.NoError(t, ptrs.t.verify())

	ids := MustNew[*node, string](0, WithHashStrategy[*node](IdentityStrategy[node]{}))
	ids.Put(&node{1}, "a")
	ids.Put(&node{1}, "b")
	require.Equal(t, 2, ids.Len())
}

func TestStringStrategies(t *testing.T) {
	m := MustNew[string, int](0, WithHashStrategy[string](FoldedStringStrategy{Seed: 7}))
	for _, k := range []string{"Hello", "HELLO", "hello", "World"} {
		AddTo(m, k, 1)
	}
	require.Equal(t, 2, m.Len())
	v, _ := m.Get("hElLo")
	require.Equal(t, 3, v)

	s := MustNewSet[string](0, WithHashStrategy[string](StringStrategy{Seed: 1}))
	s.AddSlice("a", "b", "A")
	require.Equal(t, 3, s.Len())
	require.NotEqual(t, StringStrategy{Seed: 1}.Hash("a"), StringStrategy{Seed: 2}.Hash("a"))
}

// saltedStrategy is not comparable; it defines its own equivalence.
type saltedStrategy struct {
	salts []uint32
}

func (s saltedStrategy) Hash(k string) uint32 {
	return StringStrategy{Seed: s.salts[0]}.Hash(k)
}

func (saltedStrategy) Equal(a, b string) bool { return a == b }

func (s saltedStrategy) EqualStrategy(other any) bool {
	o, ok := other.(saltedStrategy)
	return ok && slices.Equal(s.salts, o.salts)
}

// opaqueStrategy is not comparable and has no equivalence.
type opaqueStrategy struct {
	salts []uint32
}

func (opaqueStrategy) Hash(k string) uint32 { return uint32(len(k)) }
func (opaqueStrategy) Equal(a, b string) bool { return a == b }

func TestStrategyEquality(t *testing.T) {
	build := func(options ...Option[string]) *Set[string] {
		s := MustNewSet[string](0, options...)
		s.AddSlice("x", "y", "z")
		return s
	}
	def := build()
	require.True(t, def.Equal(build()))
	require.True(t, def.Equal(build(WithRobinHood[string](), WithSeed[string](9))))

	s1 := build(WithHashStrategy[string](StringStrategy{Seed: 1}))
	require.True(t, s1.Equal(build(WithHashStrategy[string](StringStrategy{Seed: 1}))))
	require.False(t, s1.Equal(build(WithHashStrategy[string](StringStrategy{Seed: 2}))))
	require.False(t, s1.Equal(def))
	require.False(t, def.Equal(s1))
	require.False(t, s1.Equal(build(WithHashStrategy[string](FoldedStringStrategy{Seed: 1}))))

	salted := build(WithHashStrategy[string](saltedStrategy{[]uint32{3}}))
	require.True(t, salted.Equal(build(WithHashStrategy[string](saltedStrategy{[]uint32{3}}))))
	require.False(t, salted.Equal(build(WithHashStrategy[string](saltedStrategy{[]uint32{4}}))))

	opaque := build(WithHashStrategy[string](opaqueStrategy{}))
	require.True(t, opaque.Equal(opaque))
	require.False(t, opaque.Equal(build(WithHashStrategy[string](opaqueStrategy{}))))
	require.False(t, opaque.Equal(def))
}
