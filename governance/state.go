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

// StateAt derives the state of the proposal at the given chain height. Only
// terminal writes (Invalidated, Executed) are stored; every other state is a
// function of the stored tallies, the configuration snapshot and height.
func (p *Proposal) StateAt(height uint64) ProposalState {
	switch p.State {
	case StateInvalidated, StateExecuted, StatePending:
		return p.State
	}
	if height < p.VotingEndsAt() {
		return StateActive
	}
	if !p.QuorumReached() {
		return StateDefeated
	}
	if p.VotesFor.Gt(p.VotesAgainst) {
		return StateSucceeded
	}
	return StateDefeated
}
