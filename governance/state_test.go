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
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func testProposal(votesFor, votesAgainst, quorum uint64) *Proposal {
	return &Proposal{
		ID:             3,
		Title:          "title",
		Description:    "description",
		FundAllocation: tokens(10),
		Proposer:       testProposer,
		CreatedAt:      100,
		VotesFor:       uint256.NewInt(votesFor),
		VotesAgainst:   uint256.NewInt(votesAgainst),
		QuorumVotes:    uint256.NewInt(quorum),
		VotingPeriod:   50,
		State:          StateActive,
	}
}

func TestProposal_StateAt(t *testing.T) {
	tests := []struct {
		name    string
		forV    uint64
		against uint64
		quorum  uint64
		stored  ProposalState
		height  uint64
		want    ProposalState
	}{
		{"voting open", 0, 0, 10, StateActive, 100, StateActive},
		{"last voting block", 100, 0, 10, StateActive, 149, StateActive},
		{"no quorum", 4, 5, 10, StateActive, 150, StateDefeated},
		{"quorum majority", 6, 4, 10, StateActive, 150, StateSucceeded},
		{"quorum tie", 5, 5, 10, StateActive, 150, StateDefeated},
		{"quorum minority", 4, 6, 10, StateActive, 200, StateDefeated},
		{"zero quorum", 0, 0, 0, StateActive, 150, StateDefeated},
		{"invalidated during voting", 6, 4, 10, StateInvalidated, 120, StateInvalidated},
		{"invalidated after voting", 6, 4, 10, StateInvalidated, 500, StateInvalidated},
		{"executed", 6, 4, 10, StateExecuted, 500, StateExecuted},
		{"pending", 0, 0, 10, StatePending, 500, StatePending},
	}
	for _, tt := range tests {
		p := testProposal(tt.forV, tt.against, tt.quorum)
		p.State = tt.stored
		if got := p.StateAt(tt.height); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestProposalState_Values(t *testing.T) {
	states := []ProposalState{StatePending, StateActive, StateInvalidated, StateDefeated, StateSucceeded, StateExecuted}
	names := []string{"Pending", "Active", "Invalidated", "Defeated", "Succeeded", "Executed"}
	for i, s := range states {
		if uint8(s) != uint8(i) {
			t.Errorf("state %s has ordinal %d, want %d", s, uint8(s), i)
		}
		if s.String() != names[i] {
			t.Errorf("expected name %s, got %s", names[i], s)
		}
	}
	for _, s := range []ProposalState{StateInvalidated, StateDefeated, StateExecuted} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	// Succeeded still transitions to Executed
	for _, s := range []ProposalState{StatePending, StateActive, StateSucceeded} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestProposal_VotingEndsAtSaturates(t *testing.T) {
	p := testProposal(0, 0, 0)
	if p.VotingEndsAt() != 150 {
		t.Errorf("expected end 150, got %d", p.VotingEndsAt())
	}
	p.CreatedAt = math.MaxUint64 - 10
	if p.VotingEndsAt() != math.MaxUint64 {
		t.Errorf("expected saturated end, got %d", p.VotingEndsAt())
	}
	if p.StateAt(math.MaxUint64-1) != StateActive {
		t.Error("expected proposal to stay active near the height limit")
	}
}

func TestProposal_QuorumReachedOverflow(t *testing.T) {
	p := testProposal(0, 0, 0)
	max := new(uint256.Int).SetAllOne()
	p.VotesFor = max
	p.VotesAgainst = uint256.NewInt(1)
	p.QuorumVotes = max
	if !p.QuorumReached() {
		t.Error("overflowing tally must reach any quorum")
	}
}

func TestProposal_Hash(t *testing.T) {
	p := testProposal(1, 2, 3)
	h := p.Hash()
	if h == (common.Hash{}) {
		t.Fatal("empty hash")
	}
	// Tallies and state do not contribute
	p.VotesFor = uint256.NewInt(100)
	p.State = StateExecuted
	if p.Hash() != h {
		t.Error("hash changed with tallies")
	}
	p.Description = "changed"
	if p.Hash() == h {
		t.Error("hash did not change with description")
	}
	q := testProposal(1, 2, 3)
	q.ID = 4
	if q.Hash() == h {
		t.Error("hash did not change with id")
	}
}

func TestProposal_Copy(t *testing.T) {
	p := testProposal(1, 2, 3)
	p.voters = []common.Address{testProposer}
	cpy := p.Copy()

	cpy.VotesFor.SetUint64(9)
	cpy.FundAllocation.SetUint64(9)
	cpy.voters[0] = testVoter
	if p.VotesFor.Uint64() != 1 || p.FundAllocation.Eq(uint256.NewInt(9)) || p.voters[0] != testProposer {
		t.Error("copy shares state with the original")
	}
}
