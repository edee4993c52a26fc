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

package governance

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BalanceOracle supplies voting weight. Implementations must be side effect
// free and safe for concurrent use.
type BalanceOracle interface {
	// WeightOf returns the current weight of an account
	WeightOf(account common.Address) (*uint256.Int, error)
}

// HeightSource supplies the current chain height. The returned value must
// never decrease between calls.
type HeightSource interface {
	// CurrentHeight returns the latest known chain height
	CurrentHeight() uint64
}
