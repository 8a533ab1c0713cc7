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

package quicksort

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// nan returns a NaN with the given payload.
func nan(payload uint64) float64 {
	return math.Float64frombits(0x7ff8000000000000 | (payload & 0x7ffffffffffff))
}

func TestCompareFloat(t *testing.T) {
	negZero := math.Copysign(0, -1)
	ordered := []float64{
		math.Inf(-1), -math.MaxFloat64, -1, -math.SmallestNonzeroFloat64, negZero, 0,
		math.SmallestNonzeroFloat64, 1, math.MaxFloat64, math.Inf(1), math.NaN(),
	}
	for i := range ordered {
		for j := range ordered {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			require.Equal(t, want, CompareFloat(ordered[i], ordered[j]), "%v vs %v", ordered[i], ordered[j])
		}
	}
	require.Equal(t, 0, CompareFloat(nan(1), nan(2)))
	require.Equal(t, 0, CompareFloat(float32(math.NaN()), float32(math.NaN())))
	require.Equal(t, -1, CompareFloat(float32(negZero), float32(0)))
}

func TestCompare(t *testing.T) {
	require.Equal(t, -1, Compare(1, 2))
	require.Equal(t, 1, Compare("b", "a"))
	require.Equal(t, 0, Compare(3, 3))
	require.Equal(t, 1, Compare(math.NaN(), math.Inf(1)))
	require.Equal(t, -1, Compare(math.Inf(1), math.NaN()))
	require.Equal(t, 0, Compare(math.NaN(), nan(7)))
}

func TestSortNaN(t *testing.T) {
	s := []float64{math.NaN(), 3.0, nan(42), -1.0, 0.0}
	Sort(s)
	require.Equal(t, []float64{-1, 0, 3}, s[:3])
	require.True(t, math.IsNaN(s[3]))
	require.True(t, math.IsNaN(s[4]))
}

// referenceSort sorts floats by total order using the standard library.
func referenceSort(s []float64) {
	sort.SliceStable(s, func(i, j int) bool {
		return CompareFloat(s[i], s[j]) < 0
	})
}

func TestSortFloatSpecials(t *testing.T) {
	negZero := math.Copysign(0, -1)
	specials := []float64{
		math.Inf(-1), math.Inf(1), negZero, 0, math.NaN(), nan(1), nan(12345),
		math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64,
	}
	for _, n := range []int{0, 1, 5, 23, 24, 25, 100, 1000, 10000} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			s := make([]float64, n)
			for i := range s {
				if rand.Intn(4) == 0 {
					s[i] = specials[rand.Intn(len(specials))]
				} else {
					s[i] = float64(rand.Intn(50) - 25)
				}
			}
			expected := slices.Clone(s)
			referenceSort(expected)
			Sort(s)

			var nans int
			for i := range s {
				if math.IsNaN(expected[i]) {
					require.True(t, math.IsNaN(s[i]), "index %d", i)
					nans++
					continue
				}
				require.Equal(t, math.Float64bits(expected[i]), math.Float64bits(s[i]), "index %d", i)
			}
			// All NaNs are grouped at the tail.
			for i := n - nans; i < n; i++ {
				require.True(t, math.IsNaN(s[i]))
			}
			require.True(t, IsSorted(s))
		})
	}
}

func TestSortFloat32(t *testing.T) {
	s := []float32{float32(math.NaN()), 2, float32(math.Copysign(0, -1)), 0, -3}
	Sort(s)
	require.Equal(t, float32(-3), s[0])
	require.True(t, math.Signbit(float64(s[1])))
	require.False(t, math.Signbit(float64(s[2])))
	require.Equal(t, float32(2), s[3])
	require.True(t, s[4] != s[4])
}

type celsius float64

func TestSortNamedFloat(t *testing.T) {
	s := []celsius{celsius(math.NaN()), 10, -5}
	Sort(s)
	require.Equal(t, celsius(-5), s[0])
	require.Equal(t, celsius(10), s[1])
	require.True(t, s[2] != s[2])
}

func TestSortInts(t *testing.T) {
	testCases := []struct {
		name string
		gen  func(i, n int) int
	}{
		{"random", func(i, n int) int { return rand.Int() }},
		{"few-distinct", func(i, n int) int { return rand.Intn(4) }},
		{"sorted", func(i, n int) int { return i }},
		{"reversed", func(i, n int) int { return n - i }},
		{"organ-pipe", func(i, n int) int {
			if i < n/2 {
				return i
			}
			return n - i
		}},
		{"sawtooth", func(i, n int) int { return i % 17 }},
		{"constant", func(i, n int) int { return 7 }},
		{"two-values", func(i, n int) int { return (i % 2) * 1000 }},
	}
	for _, c := range testCases {
		for _, n := range []int{0, 1, 2, 23, 24, 47, 100, 1000, 20000} {
			t.Run(fmt.Sprintf("%s/%d", c.name, n), func(t *testing.T) {
				s := make([]int, n)
				for i := range s {
					s[i] = c.gen(i, n)
				}
				expected := slices.Clone(s)
				slices.Sort(expected)
				Sort(s)
				require.Equal(t, expected, s)
			})
		}
	}
}

func TestSortStrings(t *testing.T) {
	s := make([]string, 500)
	for i := range s {
		s[i] = strconv.Itoa(rand.Intn(200))
	}
	expected := slices.Clone(s)
	slices.Sort(expected)
	Sort(s)
	require.Equal(t, expected, s)
}

func TestSortRange(t *testing.T) {
	s := make([]int, 1000)
	for i := range s {
		s[i] = rand.Intn(100)
	}
	orig := slices.Clone(s)
	SortRange(s, 100, 900)
	require.Equal(t, orig[:100], s[:100])
	require.Equal(t, orig[900:], s[900:])
	require.True(t, IsSorted(s[100:900]))

	expected := slices.Clone(orig[100:900])
	slices.Sort(expected)
	require.Equal(t, expected, s[100:900])

	require.Panics(t, func() { SortRange(s, -1, 10) })
	require.Panics(t, func() { SortRange(s, 10, 1001) })
	require.Panics(t, func() { SortRange(s, 10, 9) })
	require.NotPanics(t, func() { SortRange(s, 10, 10) })
}

type person struct {
	name string
	age  int
}

func TestSortFunc(t *testing.T) {
	s := make([]person, 2000)
	for i := range s {
		s[i] = person{name: strconv.Itoa(i), age: rand.Intn(90)}
	}
	byAge := func(a, b person) int { return a.age - b.age }
	SortFunc(s, byAge)
	require.True(t, IsSortedFunc(s, byAge))

	// No element is lost or duplicated.
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		require.False(t, seen[p.name])
		seen[p.name] = true
	}
	require.Len(t, seen, len(s))

	desc := func(a, b person) int { return b.age - a.age }
	SortRangeFunc(s, 0, len(s), desc)
	require.True(t, IsSortedFunc(s, desc))
}

func TestSortNetwork5(t *testing.T) {
	// Every permutation of five distinct values is sorted by the network.
	var permute func(p []int, k int)
	permute = func(p []int, k int) {
		if k == len(p) {
			a := slices.Clone(p)
			sortNetwork5(a, 0, 1, 2, 3, 4, Compare[int])
			require.Equal(t, []int{0, 1, 2, 3, 4}, a, "input %v", p)
			return
		}
		for i := k; i < len(p); i++ {
			p[k], p[i] = p[i], p[k]
			permute(p, k+1)
			p[k], p[i] = p[i], p[k]
		}
	}
	permute([]int{0, 1, 2, 3, 4}, 0)
}

func TestIsSorted(t *testing.T) {
	require.True(t, IsSorted([]int{}))
	require.True(t, IsSorted([]int{1, 1, 2}))
	require.False(t, IsSorted([]int{2, 1}))
	require.True(t, IsSorted([]float64{1, math.NaN()}))
	require.False(t, IsSorted([]float64{math.NaN(), 1}))
}
