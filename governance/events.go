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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
)

// ProposalCreatedEvent is posted when a proposal has been stored.
type ProposalCreatedEvent struct {
	ID             uint64
	Title          string
	FundAllocation *uint256.Int
	Proposer       common.Address
	Height         uint64
}

// VoteCastEvent is posted when a ballot has been counted.
type VoteCastEvent struct {
	Vote
}

// ProposalInvalidatedEvent is posted when the administrator invalidates a proposal.
type ProposalInvalidatedEvent struct {
	ID     uint64
	Height uint64
}

// ProposalExecutedEvent is posted when a succeeded proposal is marked executed.
type ProposalExecutedEvent struct {
	ID       uint64
	Executor common.Address
	Height   uint64
}

// SubscribeProposalCreated registers a subscription of ProposalCreatedEvent.
func (g *Governor) SubscribeProposalCreated(ch chan<- ProposalCreatedEvent) event.Subscription {
	return g.scope.Track(g.proposalFeed.Subscribe(ch))
}

// SubscribeVoteCast registers a subscription of VoteCastEvent.
func (g *Governor) SubscribeVoteCast(ch chan<- VoteCastEvent) event.Subscription {
	return g.scope.Track(g.voteFeed.Subscribe(ch))
}

// SubscribeProposalInvalidated registers a subscription of ProposalInvalidatedEvent.
func (g *Governor) SubscribeProposalInvalidated(ch chan<- ProposalInvalidatedEvent) event.Subscription {
	return g.scope.Track(g.invalidatedFeed.Subscribe(ch))
}

// SubscribeProposalExecuted registers a subscription of ProposalExecutedEvent.
func (g *Governor) SubscribeProposalExecuted(ch chan<- ProposalExecutedEvent) event.Subscription {
	return g.scope.Track(g.executedFeed.Subscribe(ch))
}

// eventQueue runs delivery callbacks one at a time in the order they were
// pushed. A drain goroutine is started on demand and exits once the queue is
// empty.
type eventQueue struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

func (q *eventQueue) push(deliver func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, deliver)
	if !q.draining {
		q.draining = true
		go q.drain()
	}
}

func (q *eventQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		deliver := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		deliver()
	}
}
