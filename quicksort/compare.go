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
	"math"

	"golang.org/x/exp/constraints"
)

// Compare orders a and b, treating every NaN as equal to every other NaN and
// greater than any other value. Unlike cmp.Compare, which sorts NaN first,
// NaN sorts last. Compare does not separate -0 from +0; use CompareFloat for
// that.
func Compare[E constraints.Ordered](a, b E) int {
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN:
		if bNaN {
			return 0
		}
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareFloat is the total order on floats: -Inf < ... < -0 < +0 < ... <
// +Inf < NaN, with all NaN encodings equal.
func CompareFloat[F constraints.Float](a, b F) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	// a == b; only signed zeros can still differ.
	aNeg, bNeg := math.Signbit(float64(a)), math.Signbit(float64(b))
	switch {
	case aNeg == bNeg:
		return 0
	case aNeg:
		return -1
	default:
		return 1
	}
}
