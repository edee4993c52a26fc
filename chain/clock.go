// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package chain

import (
	"math"
	"sync/atomic"
)

// ManualClock is a height source driven by the caller. The height never
// decreases.
type ManualClock struct {
	height atomic.Uint64
}

func NewManualClock(height uint64) *ManualClock {
	c := new(ManualClock)
	c.height.Store(height)
	return c
}

// CurrentHeight implements governance.HeightSource.
func (c *ManualClock) CurrentHeight() uint64 {
	return c.height.Load()
}

// Set moves the clock to height. Heights below the current one are ignored
// and the effective height is returned.
func (c *ManualClock) Set(height uint64) uint64 {
	for {
		cur := c.height.Load()
		if height <= cur {
			return cur
		}
		if c.height.CompareAndSwap(cur, height) {
			return height
		}
	}
}

// Advance moves the clock forward by n blocks, saturating at the maximum height.
func (c *ManualClock) Advance(n uint64) uint64 {
	for {
		cur := c.height.Load()
		next := cur + n
		if next < cur {
			next = math.MaxUint64
		}
		if c.height.CompareAndSwap(cur, next) {
			return next
		}
	}
}
