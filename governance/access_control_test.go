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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAccessControl_RequireAdministrator(t *testing.T) {
	ac := NewAccessControl(testAdmin)

	if err := ac.RequireAdministrator(testAdmin); err != nil {
		t.Errorf("administrator rejected: %v", err)
	}
	err := ac.RequireAdministrator(testProposer)
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrNotAdministrator) {
		t.Errorf("expected ErrNotAdministrator, got %v", err)
	}
	if ac.Administrator() != testAdmin {
		t.Errorf("administrator mismatch: %s", ac.Administrator().Hex())
	}
}

func TestAccessControl_BlockIdempotent(t *testing.T) {
	ac := NewAccessControl(testAdmin)

	for i := 0; i < 2; i++ {
		if err := ac.Block(testAdmin, testVoter); err != nil {
			t.Fatalf("block %d failed: %v", i, err)
		}
		if !ac.IsBlocked(testVoter) {
			t.Fatalf("address not blocked after block %d", i)
		}
	}
	if n := len(ac.Blocked()); n != 1 {
		t.Errorf("expected 1 blocked address, got %d", n)
	}
	for i := 0; i < 2; i++ {
		if err := ac.Unblock(testAdmin, testVoter); err != nil {
			t.Fatalf("unblock %d failed: %v", i, err)
		}
		if ac.IsBlocked(testVoter) {
			t.Fatalf("address still blocked after unblock %d", i)
		}
	}
	if n := len(ac.Blocked()); n != 0 {
		t.Errorf("expected empty block-list, got %d", n)
	}
}

func TestAccessControl_BlockRequiresAdministrator(t *testing.T) {
	ac := NewAccessControl(testAdmin)

	if err := ac.Block(testProposer, testVoter); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if ac.IsBlocked(testVoter) {
		t.Error("unauthorized block took effect")
	}
	if err := ac.Block(testAdmin, testVoter); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	if err := ac.Unblock(testVoter, testVoter); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if !ac.IsBlocked(testVoter) {
		t.Error("unauthorized unblock took effect")
	}
}

func TestAccessControl_BlockedSorted(t *testing.T) {
	ac := NewAccessControl(testAdmin)

	addrs := []common.Address{
		common.HexToAddress("0x30"),
		common.HexToAddress("0x10"),
		common.HexToAddress("0x20"),
	}
	for _, addr := range addrs {
		if err := ac.Block(testAdmin, addr); err != nil {
			t.Fatalf("block failed: %v", err)
		}
	}
	blocked := ac.Blocked()
	if len(blocked) != 3 {
		t.Fatalf("expected 3 blocked addresses, got %d", len(blocked))
	}
	for i := 1; i < len(blocked); i++ {
		if blocked[i-1].Cmp(blocked[i]) >= 0 {
			t.Errorf("block-list not sorted at %d", i)
		}
	}
	// The returned slice is detached from the block-list
	blocked[0] = common.Address{}
	if ac.IsBlocked(common.Address{}) {
		t.Error("mutating the result changed the block-list")
	}
}

func TestAccessControl_AdministratorCanBeBlocked(t *testing.T) {
	g, _, _ := newTestGovernor(t, testParams())

	if err := g.BlockAddress(testAdmin, testAdmin); err != nil {
		t.Fatalf("block failed: %v", err)
	}
	if _, err := g.Propose(testAdmin, "t", "d", tokens(1)); !errors.Is(err, ErrAddressBlocked) {
		t.Errorf("expected blocked administrator to be refused, got %v", err)
	}
	// Administrative rights are unaffected by the block-list
	if err := g.UnblockAddress(testAdmin, testAdmin); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	if got := g.BlockedAddresses(); len(got) != 0 {
		t.Errorf("expected empty block-list, got %v", got)
	}
}
