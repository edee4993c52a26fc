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

	"github.com/holiman/uint256"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	cs, err := NewConfigStore(NewAccessControl(testAdmin), DefaultMinVotingPeriod, DefaultSettings())
	if err != nil {
		t.Fatalf("failed to create config store: %v", err)
	}
	return cs
}

func TestConfigStore_VotingPeriodFloor(t *testing.T) {
	cs := newTestConfigStore(t)

	if err := cs.SetVotingPeriod(testAdmin, DefaultMinVotingPeriod); err != nil {
		t.Errorf("period at floor rejected: %v", err)
	}
	if cs.VotingPeriod() != DefaultMinVotingPeriod {
		t.Errorf("period not updated: %d", cs.VotingPeriod())
	}
	err := cs.SetVotingPeriod(testAdmin, DefaultMinVotingPeriod-1)
	if !errors.Is(err, ErrInvalidParameter) || !errors.Is(err, ErrVotingPeriodTooShort) {
		t.Errorf("expected ErrVotingPeriodTooShort, got %v", err)
	}
	if cs.VotingPeriod() != DefaultMinVotingPeriod {
		t.Errorf("rejected period changed settings: %d", cs.VotingPeriod())
	}
	if err := cs.SetVotingPeriod(testAdmin, 806400); err != nil {
		t.Errorf("long period rejected: %v", err)
	}
}

func TestConfigStore_ProposalReward(t *testing.T) {
	cs := newTestConfigStore(t)

	for _, bps := range []uint64{10, 1000, 0, MaxRewardBps} {
		if err := cs.SetProposalRewardBps(testAdmin, bps); err != nil {
			t.Errorf("reward %d rejected: %v", bps, err)
		}
		if cs.ProposalRewardBps() != bps {
			t.Errorf("expected reward %d, got %d", bps, cs.ProposalRewardBps())
		}
	}
	if err := cs.SetProposalRewardBps(testAdmin, MaxRewardBps+1); !errors.Is(err, ErrRewardOutOfRange) {
		t.Errorf("expected ErrRewardOutOfRange, got %v", err)
	}
	if cs.ProposalRewardBps() != MaxRewardBps {
		t.Errorf("rejected reward changed settings: %d", cs.ProposalRewardBps())
	}
}

func TestConfigStore_QuorumThreshold(t *testing.T) {
	cs := newTestConfigStore(t)

	value := tokens(4000)
	if err := cs.SetQuorumThreshold(testAdmin, value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value.SetUint64(1) // caller keeps ownership of its argument
	if got := cs.QuorumThreshold(); !got.Eq(tokens(4000)) {
		t.Errorf("expected quorum 4000 tokens, got %s", got.Dec())
	}
	if err := cs.SetQuorumThreshold(testAdmin, new(uint256.Int)); err != nil {
		t.Errorf("zero quorum rejected: %v", err)
	}
	if err := cs.SetQuorumThreshold(testAdmin, nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for nil quorum, got %v", err)
	}
}

func TestConfigStore_Unauthorized(t *testing.T) {
	cs := newTestConfigStore(t)
	before := cs.Settings()

	if err := cs.SetQuorumThreshold(testVoter, tokens(1)); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := cs.SetVotingPeriod(testVoter, 806400); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := cs.SetProposalRewardBps(testVoter, 1); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	after := cs.Settings()
	if !after.QuorumThreshold.Eq(before.QuorumThreshold) || after.VotingPeriod != before.VotingPeriod || after.ProposalRewardBps != before.ProposalRewardBps {
		t.Errorf("unauthorized setters changed settings: %+v", after)
	}
}

func TestConfigStore_InvalidInitial(t *testing.T) {
	access := NewAccessControl(testAdmin)

	tests := []struct {
		name     string
		settings *Settings
		want     error
	}{
		{"nil", nil, ErrNilAmount},
		{"nil quorum", &Settings{VotingPeriod: DefaultVotingPeriod}, ErrNilAmount},
		{"short period", &Settings{QuorumThreshold: tokens(1), VotingPeriod: 1}, ErrVotingPeriodTooShort},
		{"large reward", &Settings{QuorumThreshold: tokens(1), VotingPeriod: DefaultVotingPeriod, ProposalRewardBps: 10001}, ErrRewardOutOfRange},
	}
	for _, tt := range tests {
		if _, err := NewConfigStore(access, DefaultMinVotingPeriod, tt.settings); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestConfigStore_SettingsCopy(t *testing.T) {
	cs := newTestConfigStore(t)

	s := cs.Settings()
	s.QuorumThreshold.SetUint64(0)
	s.VotingPeriod = 1
	if cs.QuorumThreshold().IsZero() || cs.VotingPeriod() != DefaultVotingPeriod {
		t.Error("mutating returned settings changed the store")
	}
}
