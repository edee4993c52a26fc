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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemoryOracle is an in-process balance table. Unknown accounts weigh zero.
type MemoryOracle struct {
	mu      sync.RWMutex
	weights map[common.Address]*uint256.Int
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{weights: make(map[common.Address]*uint256.Int)}
}

// SetWeight replaces the balance of account.
func (o *MemoryOracle) SetWeight(account common.Address, weight *uint256.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if weight == nil || weight.IsZero() {
		delete(o.weights, account)
		return
	}
	o.weights[account] = new(uint256.Int).Set(weight)
}

// WeightOf implements governance.BalanceOracle.
func (o *MemoryOracle) WeightOf(account common.Address) (*uint256.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if w, ok := o.weights[account]; ok {
		return new(uint256.Int).Set(w), nil
	}
	return new(uint256.Int), nil
}
