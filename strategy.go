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
	"hash/maphash"
	"reflect"
	"strings"

	"github.com/spaolacci/murmur3"
)

// HashStrategy customizes how a container hashes and compares its keys. Keys
// that are Equal must have the same Hash. A strategy is part of the
// container's identity: two containers are only equal if their strategies
// are equal (see Equal).
type HashStrategy[K any] interface {
	Hash(key K) uint32
	Equal(a, b K) bool
}

// Hashable is implemented by key types that hash and compare themselves.
// Containers with no explicit HashStrategy use these methods when K
// implements Hashable[K]. Nil pointer keys never reach the methods.
type Hashable[K any] interface {
	Hash() uint32
	Equal(other K) bool
}

// StrategyEqualer lets a non-comparable HashStrategy define when it is
// equivalent to another strategy.
type StrategyEqualer interface {
	EqualStrategy(other any) bool
}

// sameStrategy reports whether a and b are equivalent. A nil strategy stands
// for the default strategy of the key type.
func sameStrategy[K any](a, b HashStrategy[K]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(StrategyEqualer); ok {
		return e.EqualStrategy(b)
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// StringStrategy hashes strings with murmur3. Strategies with equal seeds are
// equal.
type StringStrategy struct {
	Seed uint32
}

// Hash implements HashStrategy.
func (s StringStrategy) Hash(key string) uint32 {
	return murmur3.Sum32WithSeed([]byte(key), s.Seed)
}

// Equal implements HashStrategy.
func (StringStrategy) Equal(a, b string) bool {
	return a == b
}

// FoldedStringStrategy treats strings that differ only in case as the same
// key.
type FoldedStringStrategy struct {
	Seed uint32
}

// Hash implements HashStrategy.
func (s FoldedStringStrategy) Hash(key string) uint32 {
	return murmur3.Sum32WithSeed([]byte(strings.ToLower(key)), s.Seed)
}

// Equal implements HashStrategy.
func (FoldedStringStrategy) Equal(a, b string) bool {
	return a == b || strings.ToLower(a) == strings.ToLower(b)
}

// IdentityStrategy hashes pointers by address, bypassing any Hashable
// implementation of *T.
type IdentityStrategy[T any] struct{}

// Hash implements HashStrategy.
func (IdentityStrategy[T]) Hash(key *T) uint32 {
	return fold64(maphash.Comparable(hashSeed, key))
}

// Equal implements HashStrategy.
func (IdentityStrategy[T]) Equal(a, b *T) bool {
	return a == b
}
