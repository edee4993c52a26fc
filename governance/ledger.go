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

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ledgerState is an immutable view of all proposals. Records referenced from
// a published state are never modified; writers replace them.
type ledgerState struct {
	version   uint64
	proposals []*Proposal
}

func (s *ledgerState) proposal(id uint64) (*Proposal, bool) {
	if id >= uint64(len(s.proposals)) {
		return nil, false
	}
	return s.proposals[id], true
}

type ballotKey struct {
	proposal uint64
	voter    common.Address
}

// ballot is a vote stamped with the ledger version that made it visible.
type ballot struct {
	vote    Vote
	version uint64
}

// proposalLedger is the ordered, append-only collection of proposals and
// their ballots. Mutators must be serialized by the caller; readers never
// block.
type proposalLedger struct {
	state   atomic.Pointer[ledgerState]
	ballots sync.Map // ballotKey -> *ballot
}

func newProposalLedger() *proposalLedger {
	l := new(proposalLedger)
	l.state.Store(&ledgerState{})
	return l
}

func (l *proposalLedger) view() *ledgerState {
	return l.state.Load()
}

// ballot looks up the ballot of voter on a proposal as seen by view.
func (l *proposalLedger) ballot(view *ledgerState, id uint64, voter common.Address) (*Vote, bool) {
	v, ok := l.ballots.Load(ballotKey{id, voter})
	if !ok {
		return nil, false
	}
	b := v.(*ballot)
	if b.version > view.version {
		return nil, false
	}
	return &b.vote, true
}

// votes returns the ballots of a proposal in casting order.
func (l *proposalLedger) votes(view *ledgerState, p *Proposal) []*Vote {
	votes := make([]*Vote, 0, len(p.voters))
	for _, voter := range p.voters {
		if v, ok := l.ballot(view, p.ID, voter); ok {
			cpy := *v
			cpy.Weight = new(uint256.Int).Set(v.Weight)
			votes = append(votes, &cpy)
		}
	}
	return votes
}

// append stores a new proposal with the proposer's ballot and returns its id.
// The id is the number of proposals stored before it.
func (l *proposalLedger) append(p *Proposal, first Vote) uint64 {
	cur := l.view()
	next := cur.version + 1

	p.ID = uint64(len(cur.proposals))
	p.voters = []common.Address{first.Voter}
	first.ProposalID = p.ID

	l.ballots.Store(ballotKey{p.ID, first.Voter}, &ballot{vote: first, version: next})
	l.state.Store(&ledgerState{
		version:   next,
		proposals: append(cur.proposals, p),
	})
	return p.ID
}

// recordVote adds a ballot to the proposal tallies. Nothing is published if
// the tally would overflow.
func (l *proposalLedger) recordVote(vote Vote) error {
	cur := l.view()
	old, ok := cur.proposal(vote.ProposalID)
	if !ok {
		return ErrProposalNotFound
	}
	rec := *old
	if vote.Support {
		sum, overflow := new(uint256.Int).AddOverflow(old.VotesFor, vote.Weight)
		if overflow {
			return ErrTallyOverflow
		}
		rec.VotesFor = sum
	} else {
		sum, overflow := new(uint256.Int).AddOverflow(old.VotesAgainst, vote.Weight)
		if overflow {
			return ErrTallyOverflow
		}
		rec.VotesAgainst = sum
	}
	rec.voters = append(old.voters, vote.Voter)

	next := cur.version + 1
	l.ballots.Store(ballotKey{vote.ProposalID, vote.Voter}, &ballot{vote: vote, version: next})
	l.publish(cur, next, &rec)
	return nil
}

// setState stores a terminal state for a proposal.
func (l *proposalLedger) setState(id uint64, state ProposalState) error {
	cur := l.view()
	old, ok := cur.proposal(id)
	if !ok {
		return ErrProposalNotFound
	}
	rec := *old
	rec.State = state
	l.publish(cur, cur.version+1, &rec)
	return nil
}

func (l *proposalLedger) publish(cur *ledgerState, version uint64, rec *Proposal) {
	proposals := slices.Clone(cur.proposals)
	proposals[rec.ID] = rec
	l.state.Store(&ledgerState{version: version, proposals: proposals})
}
