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

// Package quicksort implements an in-place dual-pivot quicksort.
//
// Ranges shorter than insertionSortThreshold are insertion sorted. Larger
// ranges sample five evenly spaced elements, order them with a 9-comparator
// sorting network and use the 2nd and 4th samples as pivots p1 <= p2. The
// range is partitioned into three parts:
//
//	  left part           center part                   right part
//	+--------------------------------------------------------------+
//	|  < p1  |  p1 <= && <= p2  |    ?    |          > p2          |
//	+--------------------------------------------------------------+
//	         ^                  ^         ^
//	         less               k         great
//
// When the center part covers more than 4/7 of the range, the elements equal
// to p1 and p2 are swapped out of it before recursing, which keeps inputs
// with few distinct values from degenerating. When the samples are not
// pairwise distinct a single-pivot three-way partition is used instead.
//
// Floating-point elements are ordered by a total order in which every NaN
// compares equal to every other NaN and greater than +Inf, and -0 sorts
// before +0. The sort is not stable.
package quicksort

import (
	"fmt"
	"reflect"
	"unsafe"

	"golang.org/x/exp/constraints"
)

const insertionSortThreshold = 24

// Sort sorts s in ascending order.
func Sort[E constraints.Ordered](s []E) {
	SortRangeFunc(s, 0, len(s), orderedCompare[E]())
}

// SortRange sorts s[from:to] in ascending order.
func SortRange[E constraints.Ordered](s []E, from, to int) {
	SortRangeFunc(s, from, to, orderedCompare[E]())
}

// SortFunc sorts s in the order defined by cmp, which must return a
// negative number when a < b, a positive number when a > b and zero when
// they are equivalent. cmp must be a strict weak ordering.
func SortFunc[E any](s []E, cmp func(a, b E) int) {
	SortRangeFunc(s, 0, len(s), cmp)
}

// SortRangeFunc sorts s[from:to] in the order defined by cmp.
func SortRangeFunc[E any](s []E, from, to int, cmp func(a, b E) int) {
	checkRange(len(s), from, to)
	if to-from < 2 {
		return
	}
	sortRange(s, from, to-1, cmp)
}

// IsSorted reports whether s is sorted in ascending order.
func IsSorted[E constraints.Ordered](s []E) bool {
	return IsSortedFunc(s, orderedCompare[E]())
}

// IsSortedFunc reports whether s is sorted in the order defined by cmp.
func IsSortedFunc[E any](s []E, cmp func(a, b E) int) bool {
	for i := 1; i < len(s); i++ {
		if cmp(s[i], s[i-1]) < 0 {
			return false
		}
	}
	return true
}

func checkRange(n, from, to int) {
	if from < 0 || to > n || from > to {
		panic(fmt.Sprintf("quicksort: range [%d:%d] out of bounds for length %d", from, to, n))
	}
}

// orderedCompare returns the total order comparator for E. Float kinds get a
// comparator that also separates -0 from +0.
func orderedCompare[E constraints.Ordered]() func(a, b E) int {
	switch reflect.TypeFor[E]().Kind() {
	case reflect.Float64:
		return func(a, b E) int {
			return CompareFloat(*(*float64)(unsafe.Pointer(&a)), *(*float64)(unsafe.Pointer(&b)))
		}
	case reflect.Float32:
		return func(a, b E) int {
			return CompareFloat(*(*float32)(unsafe.Pointer(&a)), *(*float32)(unsafe.Pointer(&b)))
		}
	default:
		return Compare[E]
	}
}

// sortRange sorts a[left:right+1].
func sortRange[E any](a []E, left, right int, cmp func(a, b E) int) {
	for {
		length := right - left + 1
		if length < insertionSortThreshold {
			insertionSort(a, left, right, cmp)
			return
		}

		// Inexpensive approximation of length / 7.
		seventh := (length >> 3) + (length >> 6) + 1

		// Sample five evenly spaced elements around the center.
		e3 := int(uint(left+right) >> 1)
		e2 := e3 - seventh
		e1 := e2 - seventh
		e4 := e3 + seventh
		e5 := e4 + seventh
		sortNetwork5(a, e1, e2, e3, e4, e5, cmp)

		less := left
		great := right

		if cmp(a[e1], a[e2]) == 0 || cmp(a[e2], a[e3]) == 0 ||
			cmp(a[e3], a[e4]) == 0 || cmp(a[e4], a[e5]) == 0 {
			// Some samples are equal: partition around the center sample.
			//
			//	+-------------------------------------------------+
			//	|  < pivot  |   == pivot   |     ?    |  > pivot  |
			//	+-------------------------------------------------+
			//	            ^              ^          ^
			//	            less           k          great
			pivot := a[e3]
			for k := less; k <= great; k++ {
				ak := a[k]
				c := cmp(ak, pivot)
				if c == 0 {
					continue
				}
				if c < 0 {
					a[k] = a[less]
					a[less] = ak
					less++
					continue
				}
				for cmp(a[great], pivot) > 0 {
					great--
				}
				if cmp(a[great], pivot) < 0 {
					a[k] = a[less]
					a[less] = a[great]
					less++
				} else {
					a[k] = a[great]
				}
				a[great] = ak
				great--
			}
			// Recurse on the smaller side and loop on the larger.
			if less-1-left < right-(great+1) {
				sortRange(a, left, less-1, cmp)
				left = great + 1
			} else {
				sortRange(a, great+1, right, cmp)
				right = less - 1
			}
			continue
		}

		// The pivots are the 2nd and 4th samples. The first and last elements
		// take their places while partitioning; the pivots are restored to
		// their final positions afterwards.
		pivot1 := a[e2]
		pivot2 := a[e4]
		a[e2] = a[left]
		a[e4] = a[right]

		// Skip elements which are already in place. The center sample stops
		// both scans.
		for less++; cmp(a[less], pivot1) < 0; less++ {
		}
		for great--; cmp(a[great], pivot2) > 0; great-- {
		}

	outer:
		for k := less; k <= great; k++ {
			ak := a[k]
			if cmp(ak, pivot1) < 0 {
				a[k] = a[less]
				a[less] = ak
				less++
			} else if cmp(ak, pivot2) > 0 {
				for cmp(a[great], pivot2) > 0 {
					if great == k {
						great--
						break outer
					}
					great--
				}
				if cmp(a[great], pivot1) < 0 {
					a[k] = a[less]
					a[less] = a[great]
					less++
				} else {
					a[k] = a[great]
				}
				a[great] = ak
				great--
			}
		}

		// Swap the pivots into their final positions.
		a[left] = a[less-1]
		a[less-1] = pivot1
		a[right] = a[great+1]
		a[great+1] = pivot2

		sortRange(a, left, less-2, cmp)
		sortRange(a, great+2, right, cmp)

		if less < e1 && e5 < great {
			// The center part is too large. Move the elements equal to the
			// pivots out of it so only the strictly interior values remain.
			for cmp(a[less], pivot1) == 0 {
				less++
			}
			for cmp(a[great], pivot2) == 0 {
				great--
			}

		center:
			for k := less; k <= great; k++ {
				ak := a[k]
				if cmp(ak, pivot1) == 0 {
					a[k] = a[less]
					a[less] = ak
					less++
				} else if cmp(ak, pivot2) == 0 {
					for cmp(a[great], pivot2) == 0 {
						if great == k {
							great--
							break center
						}
						great--
					}
					if cmp(a[great], pivot1) == 0 {
						a[k] = a[less]
						a[less] = a[great]
						less++
					} else {
						a[k] = a[great]
					}
					a[great] = ak
					great--
				}
			}
		}

		// Sort the center part.
		left, right = less, great
	}
}

// sortNetwork5 orders the five samples with a 9-comparator sorting network.
func sortNetwork5[E any](a []E, e1, e2, e3, e4, e5 int, cmp func(a, b E) int) {
	idx := [5]int{e1, e2, e3, e4, e5}
	for _, p := range [9][2]uint8{
		{0, 1}, {3, 4}, {2, 4}, {2, 3}, {0, 3}, {0, 2}, {1, 4}, {1, 3}, {1, 2},
	} {
		i, j := idx[p[0]], idx[p[1]]
		if cmp(a[j], a[i]) < 0 {
			a[i], a[j] = a[j], a[i]
		}
	}
}

// insertionSort sorts a[left:right+1].
func insertionSort[E any](a []E, left, right int, cmp func(a, b E) int) {
	for i := left + 1; i <= right; i++ {
		ai := a[i]
		j := i - 1
		for ; j >= left && cmp(ai, a[j]) < 0; j-- {
			a[j+1] = a[j]
		}
		a[j+1] = ai
	}
}
