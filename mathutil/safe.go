// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2026 The Kishu Authors
// (modifications)
// This file is part of Kishu.
//
// Kishu is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kishu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Kishu. If not, see <http://www.gnu.org/licenses/>.

// Package mathutil provides overflow-safe arithmetic helpers used by the
// size profiler, which must accumulate byte counts across arbitrarily
// large object graphs without silently wrapping.
package mathutil

import "math/bits"

const (
	MaxUint64 = 1<<64 - 1
)

// SafeAdd returns x+y and whether the addition overflowed a uint64.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// SaturatingAdd returns x+y, clamped to MaxUint64 on overflow. The size
// profiler uses this so a pathological object graph degrades to "as big as
// representable" instead of wrapping back around to a small number --
// monotonicity would otherwise break the instant the running total
// overflows.
func SaturatingAdd(x, y uint64) uint64 {
	sum, overflow := SafeAdd(x, y)
	if overflow {
		return MaxUint64
	}
	return sum
}
