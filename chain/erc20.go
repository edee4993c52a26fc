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

// Package chain binds the governance engine to an EVM chain: token balances
// as voting weight and the chain head as the height source.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultCallTimeout bounds a single balanceOf call.
const DefaultCallTimeout = 5 * time.Second

const erc20ABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

var errBalanceOverflow = errors.New("balance exceeds 256 bits")

// ERC20Oracle reports the token balance of an account as its voting weight.
type ERC20Oracle struct {
	caller  ethereum.ContractCaller
	token   common.Address
	abi     abi.ABI
	timeout time.Duration
}

// NewERC20Oracle creates an oracle reading balances of token through caller.
// A zero timeout selects DefaultCallTimeout.
func NewERC20Oracle(caller ethereum.ContractCaller, token common.Address, timeout time.Duration) (*ERC20Oracle, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	return &ERC20Oracle{
		caller:  caller,
		token:   token,
		abi:     parsed,
		timeout: timeout,
	}, nil
}

// Token returns the token contract address.
func (o *ERC20Oracle) Token() common.Address {
	return o.token
}

// WeightOf implements governance.BalanceOracle.
func (o *ERC20Oracle) WeightOf(account common.Address) (*uint256.Int, error) {
	return o.BalanceOf(context.Background(), account)
}

// BalanceOf calls balanceOf(account) on the token at the latest block.
func (o *ERC20Oracle) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	data, err := o.abi.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	msg := ethereum.CallMsg{
		To:   &o.token,
		Data: data,
	}
	result, err := o.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed: %w", err)
	}
	out, err := o.abi.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	weight, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, errBalanceOverflow
	}
	return weight, nil
}
