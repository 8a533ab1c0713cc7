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

import "golang.org/x/exp/constraints"

// Number is the set of value types AddTo and PutOrAdd accept.
type Number interface {
	constraints.Integer | constraints.Float | constraints.Complex
}

// AddTo adds inc to the value of key, inserting inc if key is absent, and
// returns the new value.
func AddTo[K comparable, V Number](m *Map[K, V], key K, inc V) V {
	return PutOrAdd(m, key, inc, inc)
}

// PutOrAdd inserts putValue if key is absent and otherwise adds inc to the
// existing value. It returns the value now stored for key.
func PutOrAdd[K comparable, V Number](m *Map[K, V], key K, putValue, inc V) V {
	t := &m.t
	if i, ok := t.find(key); ok {
		t.values[i] += inc
		return t.values[i]
	}
	t.insert(t.hashOf(key), key, putValue)
	return putValue
}
