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
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ConfigStore holds the administrator controlled settings. Every setter
// publishes a fresh Settings value; existing proposals keep the snapshot they
// copied at creation and are never touched.
type ConfigStore struct {
	access          *AccessControl
	minVotingPeriod uint64

	mu      sync.Mutex
	current atomic.Pointer[Settings]
}

// NewConfigStore creates a config store seeded with initial. The voting
// period floor is fixed for the lifetime of the store.
func NewConfigStore(access *AccessControl, minVotingPeriod uint64, initial *Settings) (*ConfigStore, error) {
	cs := &ConfigStore{
		access:          access,
		minVotingPeriod: minVotingPeriod,
	}
	if err := cs.validate(initial); err != nil {
		return nil, err
	}
	cs.current.Store(initial.Copy())
	return cs, nil
}

func (cs *ConfigStore) validate(s *Settings) error {
	if s == nil || s.QuorumThreshold == nil {
		return ErrNilAmount
	}
	if s.VotingPeriod < cs.minVotingPeriod {
		return ErrVotingPeriodTooShort
	}
	if s.ProposalRewardBps > MaxRewardBps {
		return ErrRewardOutOfRange
	}
	return nil
}

// snapshot returns the live settings value. Callers must not modify it.
func (cs *ConfigStore) snapshot() *Settings {
	return cs.current.Load()
}

// Settings returns a copy of the current settings.
func (cs *ConfigStore) Settings() *Settings {
	return cs.snapshot().Copy()
}

// QuorumThreshold returns the quorum applied to newly created proposals.
func (cs *ConfigStore) QuorumThreshold() *uint256.Int {
	return new(uint256.Int).Set(cs.snapshot().QuorumThreshold)
}

// VotingPeriod returns the voting period applied to newly created proposals.
func (cs *ConfigStore) VotingPeriod() uint64 {
	return cs.snapshot().VotingPeriod
}

// ProposalRewardBps returns the current proposer reward in basis points.
func (cs *ConfigStore) ProposalRewardBps() uint64 {
	return cs.snapshot().ProposalRewardBps
}

// MinVotingPeriod returns the voting period floor.
func (cs *ConfigStore) MinVotingPeriod() uint64 {
	return cs.minVotingPeriod
}

// SetQuorumThreshold changes the quorum for proposals created afterwards. No
// bounds are enforced.
func (cs *ConfigStore) SetQuorumThreshold(caller common.Address, value *uint256.Int) error {
	if value == nil {
		return ErrNilAmount
	}
	return cs.update(caller, func(s *Settings) {
		s.QuorumThreshold = new(uint256.Int).Set(value)
	})
}

// SetVotingPeriod changes the voting period for proposals created afterwards.
// Values below the floor fail with ErrVotingPeriodTooShort.
func (cs *ConfigStore) SetVotingPeriod(caller common.Address, value uint64) error {
	return cs.update(caller, func(s *Settings) {
		s.VotingPeriod = value
	})
}

// SetProposalRewardBps changes the proposer reward rate.
func (cs *ConfigStore) SetProposalRewardBps(caller common.Address, value uint64) error {
	return cs.update(caller, func(s *Settings) {
		s.ProposalRewardBps = value
	})
}

func (cs *ConfigStore) update(caller common.Address, apply func(*Settings)) error {
	if err := cs.access.RequireAdministrator(caller); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	next := cs.snapshot().Copy()
	apply(next)
	if err := cs.validate(next); err != nil {
		return err
	}
	cs.current.Store(next)
	return nil
}
