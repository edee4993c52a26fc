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
	"slices"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// blockList is an immutable snapshot of blocked accounts.
type blockList struct {
	set mapset.Set[common.Address]
}

// AccessControl owns the single administrator and the block-list. Reads are
// lock free; writers replace the whole block-list snapshot.
type AccessControl struct {
	admin common.Address

	mu      sync.Mutex
	blocked atomic.Pointer[blockList]
}

// NewAccessControl creates an access controller with the given administrator
// and an empty block-list.
func NewAccessControl(admin common.Address) *AccessControl {
	ac := &AccessControl{admin: admin}
	ac.blocked.Store(&blockList{set: mapset.NewThreadUnsafeSet[common.Address]()})
	return ac
}

// Administrator returns the administrator account.
func (ac *AccessControl) Administrator() common.Address {
	return ac.admin
}

// IsAdministrator reports whether caller is the administrator.
func (ac *AccessControl) IsAdministrator(caller common.Address) bool {
	return caller == ac.admin
}

// RequireAdministrator fails with ErrNotAdministrator unless caller is the
// administrator.
func (ac *AccessControl) RequireAdministrator(caller common.Address) error {
	if !ac.IsAdministrator(caller) {
		return ErrNotAdministrator
	}
	return nil
}

// Block adds target to the block-list. Blocking an already blocked account
// succeeds without change.
func (ac *AccessControl) Block(caller, target common.Address) error {
	return ac.update(caller, target, true)
}

// Unblock removes target from the block-list. Unblocking an account that is
// not blocked succeeds without change.
func (ac *AccessControl) Unblock(caller, target common.Address) error {
	return ac.update(caller, target, false)
}

func (ac *AccessControl) update(caller, target common.Address, block bool) error {
	if err := ac.RequireAdministrator(caller); err != nil {
		return err
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()

	current := ac.blocked.Load().set
	if current.Contains(target) == block {
		return nil
	}
	next := current.Clone()
	if block {
		next.Add(target)
	} else {
		next.Remove(target)
	}
	ac.blocked.Store(&blockList{set: next})
	return nil
}

// IsBlocked reports whether target is on the block-list.
func (ac *AccessControl) IsBlocked(target common.Address) bool {
	return ac.blocked.Load().set.Contains(target)
}

// Blocked returns all blocked accounts in ascending order.
func (ac *AccessControl) Blocked() []common.Address {
	list := ac.blocked.Load().set.ToSlice()
	slices.SortFunc(list, func(a, b common.Address) int { return a.Cmp(b) })
	return list
}
