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
	"cmp"
	"hash/maphash"
	"math"
	"reflect"
	"unsafe"

	"github.com/cockroachdb/primcoll/quicksort"
	"golang.org/x/exp/constraints"
)

// hashSeed seeds the maphash fallback. It is fixed for the life of the
// process so unperturbed hashes, and therefore HashCode, are stable within a
// process.
var hashSeed = maphash.MakeSeed()

const (
	canonicalNaN32 = 0x7fc00000
	canonicalNaN64 = 0x7ff8000000000000
)

// mix32 is the murmur3 32-bit finalizer. mix32(0) == 0.
func mix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// mix64 is the murmur3 64-bit finalizer folded to 32 bits.
func mix64(x uint64) uint32 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return uint32(x ^ x>>32)
}

func fold64(x uint64) uint32 {
	return uint32(x ^ x>>32)
}

// keyOps is the resolved default behavior for a key type. A nil equal means
// the builtin == is used; a nil compare means the type has no natural order.
type keyOps[K comparable] struct {
	hash    func(K) uint32
	equal   func(a, b K) bool
	compare func(a, b K) int
}

// defaultKeyOps picks the hashing, equality and ordering functions for K once,
// based on its kind. Keys implementing Hashable take precedence.
func defaultKeyOps[K comparable]() keyOps[K] {
	t := reflect.TypeFor[K]()
	var zero K
	if _, ok := any(zero).(Hashable[K]); ok {
		return hashableOps[K](t.Kind() == reflect.Pointer)
	}

	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		signed := t.Kind() >= reflect.Int && t.Kind() <= reflect.Int64
		switch t.Size() {
		case 1:
			if signed {
				return integerOps[K, int8]()
			}
			return integerOps[K, uint8]()
		case 2:
			if signed {
				return integerOps[K, int16]()
			}
			return integerOps[K, uint16]()
		case 4:
			if signed {
				return integerOps[K, int32]()
			}
			return integerOps[K, uint32]()
		default:
			if signed {
				return integerOps[K, int64]()
			}
			return integerOps[K, uint64]()
		}
	case reflect.Float32:
		return float32Ops[K]()
	case reflect.Float64:
		return float64Ops[K]()
	case reflect.String:
		return keyOps[K]{
			hash: func(k K) uint32 {
				return fold64(maphash.String(hashSeed, *(*string)(unsafe.Pointer(&k))))
			},
			compare: func(a, b K) int {
				return cmp.Compare(*(*string)(unsafe.Pointer(&a)), *(*string)(unsafe.Pointer(&b)))
			},
		}
	}
	return keyOps[K]{
		hash: func(k K) uint32 {
			return fold64(maphash.Comparable(hashSeed, k))
		},
	}
}

func integerOps[K comparable, I constraints.Integer]() keyOps[K] {
	return keyOps[K]{
		hash: func(k K) uint32 {
			return mix64(uint64(*(*I)(unsafe.Pointer(&k))))
		},
		compare: func(a, b K) int {
			return cmp.Compare(*(*I)(unsafe.Pointer(&a)), *(*I)(unsafe.Pointer(&b)))
		},
	}
}

// float64Bits returns the bits of f with every NaN collapsed to a single
// pattern. +0 and -0 keep distinct patterns.
func float64Bits(f float64) uint64 {
	if f != f {
		return canonicalNaN64
	}
	return math.Float64bits(f)
}

func float32Bits(f float32) uint32 {
	if f != f {
		return canonicalNaN32
	}
	return math.Float32bits(f)
}

func float64Ops[K comparable]() keyOps[K] {
	load := func(k *K) float64 { return *(*float64)(unsafe.Pointer(k)) }
	return keyOps[K]{
		hash: func(k K) uint32 {
			return mix64(float64Bits(load(&k)))
		},
		equal: func(a, b K) bool {
			return float64Bits(load(&a)) == float64Bits(load(&b))
		},
		compare: func(a, b K) int {
			return quicksort.CompareFloat(load(&a), load(&b))
		},
	}
}

func float32Ops[K comparable]() keyOps[K] {
	load := func(k *K) float32 { return *(*float32)(unsafe.Pointer(k)) }
	return keyOps[K]{
		hash: func(k K) uint32 {
			return mix64(uint64(float32Bits(load(&k))))
		},
		equal: func(a, b K) bool {
			return float32Bits(load(&a)) == float32Bits(load(&b))
		},
		compare: func(a, b K) int {
			return quicksort.CompareFloat(load(&a), load(&b))
		},
	}
}

// hashableOps delegates to the key's own Hash and Equal methods. A nil
// pointer key hashes to 0 and is only equal to another nil key.
func hashableOps[K comparable](nilable bool) keyOps[K] {
	var zero K
	return keyOps[K]{
		hash: func(k K) uint32 {
			if nilable && k == zero {
				return 0
			}
			return any(k).(Hashable[K]).Hash()
		},
		equal: func(a, b K) bool {
			if nilable && (a == zero || b == zero) {
				return a == b
			}
			return any(a).(Hashable[K]).Equal(b)
		},
	}
}
