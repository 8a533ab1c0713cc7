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

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidCapacity is returned for a negative initial or expected
	// capacity.
	ErrInvalidCapacity = errors.New("primcoll: invalid capacity")
	// ErrInvalidLoadFactor is returned for a load factor outside (0, 1].
	ErrInvalidLoadFactor = errors.New("primcoll: load factor must be in (0, 1]")
	// ErrNilStrategy is returned when WithHashStrategy is given a nil
	// strategy.
	ErrNilStrategy = errors.New("primcoll: nil hash strategy")
	// ErrCapacityExceeded is returned when a container would need more than
	// MaxCapacity slots.
	ErrCapacityExceeded = errors.New("primcoll: capacity exceeded")
)
