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
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Governor is the token weighted governance engine. It validates every
// operation against AccessControl, the ConfigStore and the proposal ledger,
// and applies it as a single all-or-nothing step.
//
// Mutations are serialized by the engine. Reads never wait for writers; they
// observe the last published snapshot.
type Governor struct {
	access *AccessControl
	config *ConfigStore
	ledger *proposalLedger
	oracle BalanceOracle
	clock  HeightSource

	proposalThreshold *uint256.Int
	disburser         common.Address

	mu     sync.Mutex // serializes mutations
	events eventQueue // delivers events in commit order off the write path

	proposalFeed    event.Feed
	voteFeed        event.Feed
	invalidatedFeed event.Feed
	executedFeed    event.Feed
	scope           event.SubscriptionScope

	log log.Logger
}

// NewGovernor creates a governance engine. Weight is read from oracle and the
// current height from clock on every operation that needs them.
func NewGovernor(params *Params, oracle BalanceOracle, clock HeightSource) (*Governor, error) {
	switch {
	case params == nil || params.Settings == nil:
		return nil, fmt.Errorf("%w: missing params", ErrInvalidParameter)
	case oracle == nil:
		return nil, fmt.Errorf("%w: missing balance oracle", ErrInvalidParameter)
	case clock == nil:
		return nil, fmt.Errorf("%w: missing height source", ErrInvalidParameter)
	}
	if params.ProposalThreshold == nil {
		return nil, fmt.Errorf("%w: proposal threshold", ErrNilAmount)
	}
	access := NewAccessControl(params.Administrator)
	config, err := NewConfigStore(access, params.MinVotingPeriod, params.Settings)
	if err != nil {
		return nil, err
	}
	g := &Governor{
		access:            access,
		config:            config,
		ledger:            newProposalLedger(),
		oracle:            oracle,
		clock:             clock,
		proposalThreshold: new(uint256.Int).Set(params.ProposalThreshold),
		disburser:         params.Disburser,
		log:               log.New("module", "governance"),
	}
	g.log.Info("Governance engine initialised",
		"admin", params.Administrator,
		"threshold", g.proposalThreshold,
		"quorum", params.Settings.QuorumThreshold,
		"period", params.Settings.VotingPeriod,
		"minperiod", params.MinVotingPeriod,
		"reward", params.Settings.ProposalRewardBps)
	return g, nil
}

// Close unsubscribes all event subscribers. Events still queued for delivery
// are dropped.
func (g *Governor) Close() {
	g.scope.Close()
}

// apply runs op with the write lock held. If op succeeds, the returned notify
// callback is queued for delivery in commit order. Delivery happens on a
// separate goroutine, so a slow subscriber never holds up the caller.
func (g *Governor) apply(op func() (notify func(), err error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	notify, err := op()
	if err != nil {
		return err
	}
	if notify != nil {
		g.events.push(notify)
	}
	return nil
}

func (g *Governor) reject(op string, caller common.Address, err error) error {
	rejectedCounter.Inc(1)
	g.log.Debug("Governance operation rejected", "op", op, "caller", caller, "err", err)
	return err
}

func (g *Governor) weightOf(account common.Address) (*uint256.Int, error) {
	weight, err := g.oracle.WeightOf(account)
	if err != nil {
		return nil, fmt.Errorf("weight lookup for %s: %w", account.Hex(), err)
	}
	if weight == nil {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(weight), nil
}

// Propose creates a new Active proposal and counts the proposer's current
// weight as its first "for" vote. It returns the sequential proposal id.
func (g *Governor) Propose(caller common.Address, title, description string, fundAllocation *uint256.Int) (uint64, error) {
	if fundAllocation == nil {
		return 0, g.reject("propose", caller, fmt.Errorf("%w: fund allocation", ErrNilAmount))
	}
	var created ProposalCreatedEvent
	err := g.apply(func() (func(), error) {
		if g.access.IsBlocked(caller) {
			return nil, fmt.Errorf("%w from making proposals", ErrAddressBlocked)
		}
		weight, err := g.weightOf(caller)
		if err != nil {
			return nil, err
		}
		if weight.Lt(g.proposalThreshold) {
			return nil, fmt.Errorf("%w: proposer votes %s below proposal threshold %s",
				ErrInsufficientWeight, weight.Dec(), g.proposalThreshold.Dec())
		}
		settings := g.config.snapshot()
		height := g.clock.CurrentHeight()

		p := &Proposal{
			Title:          title,
			Description:    description,
			FundAllocation: new(uint256.Int).Set(fundAllocation),
			Proposer:       caller,
			CreatedAt:      height,
			VotesFor:       weight,
			VotesAgainst:   new(uint256.Int),
			QuorumVotes:    new(uint256.Int).Set(settings.QuorumThreshold),
			VotingPeriod:   settings.VotingPeriod,
			State:          StateActive,
		}
		id := g.ledger.append(p, Vote{Voter: caller, Support: true, Weight: weight, Height: height})

		created = ProposalCreatedEvent{
			ID:             id,
			Title:          title,
			FundAllocation: new(uint256.Int).Set(fundAllocation),
			Proposer:       caller,
			Height:         height,
		}
		return func() { g.proposalFeed.Send(created) }, nil
	})
	if err != nil {
		return 0, g.reject("propose", caller, err)
	}
	proposalCreatedCounter.Inc(1)
	g.log.Info("Proposal created", "id", created.ID, "proposer", caller, "allocation", fundAllocation, "height", created.Height)
	return created.ID, nil
}

// CastVote adds the caller's current weight to the for or against tally of
// an Active proposal. Each account may vote once per proposal; a second
// ballot fails with ErrAlreadyVoted.
func (g *Governor) CastVote(caller common.Address, id uint64, support bool) error {
	var vote Vote
	err := g.apply(func() (func(), error) {
		view := g.ledger.view()
		p, ok := view.proposal(id)
		if !ok {
			return nil, fmt.Errorf("%w %d", ErrProposalNotFound, id)
		}
		if g.access.IsBlocked(caller) {
			return nil, fmt.Errorf("%w from voting", ErrAddressBlocked)
		}
		height := g.clock.CurrentHeight()
		if state := p.StateAt(height); state != StateActive {
			return nil, fmt.Errorf("%w: proposal %d is %v", ErrProposalNotActive, id, state)
		}
		if _, voted := g.ledger.ballot(view, id, caller); voted {
			return nil, ErrAlreadyVoted
		}
		weight, err := g.weightOf(caller)
		if err != nil {
			return nil, err
		}
		vote = Vote{ProposalID: id, Voter: caller, Support: support, Weight: weight, Height: height}
		if err := g.ledger.recordVote(vote); err != nil {
			return nil, err
		}
		return func() {
			ev := VoteCastEvent{vote}
			ev.Weight = new(uint256.Int).Set(vote.Weight)
			g.voteFeed.Send(ev)
		}, nil
	})
	if err != nil {
		return g.reject("castVote", caller, err)
	}
	voteCastCounter.Inc(1)
	g.log.Info("Vote cast", "id", id, "voter", caller, "support", support, "weight", vote.Weight)
	return nil
}

// InvalidateProposal permanently cancels an Active proposal. Only the
// administrator may invalidate.
func (g *Governor) InvalidateProposal(caller common.Address, id uint64) error {
	var height uint64
	err := g.apply(func() (func(), error) {
		if err := g.access.RequireAdministrator(caller); err != nil {
			return nil, err
		}
		p, ok := g.ledger.view().proposal(id)
		if !ok {
			return nil, fmt.Errorf("%w %d", ErrProposalNotFound, id)
		}
		height = g.clock.CurrentHeight()
		if state := p.StateAt(height); state != StateActive {
			return nil, fmt.Errorf("%w: proposal %d is %v", ErrProposalNotActive, id, state)
		}
		if err := g.ledger.setState(id, StateInvalidated); err != nil {
			return nil, err
		}
		return func() { g.invalidatedFeed.Send(ProposalInvalidatedEvent{ID: id, Height: height}) }, nil
	})
	if err != nil {
		return g.reject("invalidateProposal", caller, err)
	}
	proposalInvalidatedCounter.Inc(1)
	g.log.Warn("Proposal invalidated", "id", id, "height", height)
	return nil
}

// MarkExecuted records that the payout of a Succeeded proposal completed.
// Only the configured disburser or the administrator may call it.
func (g *Governor) MarkExecuted(caller common.Address, id uint64) error {
	var height uint64
	err := g.apply(func() (func(), error) {
		if !g.mayExecute(caller) {
			return nil, ErrNotDisburser
		}
		p, ok := g.ledger.view().proposal(id)
		if !ok {
			return nil, fmt.Errorf("%w %d", ErrProposalNotFound, id)
		}
		height = g.clock.CurrentHeight()
		if state := p.StateAt(height); state != StateSucceeded {
			return nil, fmt.Errorf("%w: proposal %d is %v", ErrProposalNotSucceeded, id, state)
		}
		if err := g.ledger.setState(id, StateExecuted); err != nil {
			return nil, err
		}
		return func() {
			g.executedFeed.Send(ProposalExecutedEvent{ID: id, Executor: caller, Height: height})
		}, nil
	})
	if err != nil {
		return g.reject("markExecuted", caller, err)
	}
	proposalExecutedCounter.Inc(1)
	g.log.Info("Proposal executed", "id", id, "executor", caller, "height", height)
	return nil
}

func (g *Governor) mayExecute(caller common.Address) bool {
	if g.access.IsAdministrator(caller) {
		return true
	}
	return g.disburser != (common.Address{}) && caller == g.disburser
}

// SetQuorumThreshold changes the quorum applied to proposals created
// afterwards.
func (g *Governor) SetQuorumThreshold(caller common.Address, value *uint256.Int) error {
	err := g.apply(func() (func(), error) {
		return nil, g.config.SetQuorumThreshold(caller, value)
	})
	if err != nil {
		return g.reject("setQuorumThreshold", caller, err)
	}
	g.log.Info("Quorum threshold updated", "quorum", value)
	return nil
}

// SetVotingPeriod changes the voting period applied to proposals created
// afterwards.
func (g *Governor) SetVotingPeriod(caller common.Address, blocks uint64) error {
	err := g.apply(func() (func(), error) {
		return nil, g.config.SetVotingPeriod(caller, blocks)
	})
	if err != nil {
		return g.reject("setVotingPeriod", caller, err)
	}
	g.log.Info("Voting period updated", "blocks", blocks)
	return nil
}

// SetProposalReward changes the proposer reward in basis points.
func (g *Governor) SetProposalReward(caller common.Address, bps uint64) error {
	err := g.apply(func() (func(), error) {
		return nil, g.config.SetProposalRewardBps(caller, bps)
	})
	if err != nil {
		return g.reject("setProposalReward", caller, err)
	}
	g.log.Info("Proposal reward updated", "bps", bps)
	return nil
}

// BlockAddress bars target from proposing and voting.
func (g *Governor) BlockAddress(caller, target common.Address) error {
	err := g.apply(func() (func(), error) {
		return nil, g.access.Block(caller, target)
	})
	if err != nil {
		return g.reject("blockAddress", caller, err)
	}
	g.log.Info("Address blocked", "target", target)
	return nil
}

// UnblockAddress lifts the block on target.
func (g *Governor) UnblockAddress(caller, target common.Address) error {
	err := g.apply(func() (func(), error) {
		return nil, g.access.Unblock(caller, target)
	})
	if err != nil {
		return g.reject("unblockAddress", caller, err)
	}
	g.log.Info("Address unblocked", "target", target)
	return nil
}

// GetProposal returns a copy of the proposal with its state derived at the
// current height.
func (g *Governor) GetProposal(id uint64) (*Proposal, error) {
	p, ok := g.ledger.view().proposal(id)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrProposalNotFound, id)
	}
	cpy := p.Copy()
	cpy.State = p.StateAt(g.clock.CurrentHeight())
	return cpy, nil
}

// ProposalCount returns the number of proposals ever created.
func (g *Governor) ProposalCount() uint64 {
	return uint64(len(g.ledger.view().proposals))
}

// HasVoted reports whether account has a ballot on the proposal. Unknown
// proposals have no voters.
func (g *Governor) HasVoted(account common.Address, id uint64) bool {
	_, ok := g.ledger.ballot(g.ledger.view(), id, account)
	return ok
}

// GetVote returns the direction of account's ballot on the proposal.
func (g *Governor) GetVote(account common.Address, id uint64) (bool, error) {
	view := g.ledger.view()
	if _, ok := view.proposal(id); !ok {
		return false, fmt.Errorf("%w %d", ErrProposalNotFound, id)
	}
	v, ok := g.ledger.ballot(view, id, account)
	if !ok {
		return false, ErrNoVoteRecorded
	}
	return v.Support, nil
}

// Votes returns all ballots of the proposal in casting order.
func (g *Governor) Votes(id uint64) ([]*Vote, error) {
	view := g.ledger.view()
	p, ok := view.proposal(id)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrProposalNotFound, id)
	}
	return g.ledger.votes(view, p), nil
}

// QuorumReached reports whether the proposal's combined tally meets its
// quorum snapshot.
func (g *Governor) QuorumReached(id uint64) (bool, error) {
	p, ok := g.ledger.view().proposal(id)
	if !ok {
		return false, fmt.Errorf("%w %d", ErrProposalNotFound, id)
	}
	return p.QuorumReached(), nil
}

// VotesForQuorum returns the quorum applied to new proposals.
func (g *Governor) VotesForQuorum() *uint256.Int { return g.config.QuorumThreshold() }

// VotingPeriodBlocks returns the voting period applied to new proposals.
func (g *Governor) VotingPeriodBlocks() uint64 { return g.config.VotingPeriod() }

// ProposalReward returns the proposer reward in basis points.
func (g *Governor) ProposalReward() uint64 { return g.config.ProposalRewardBps() }

// MinVotingPeriod returns the voting period floor.
func (g *Governor) MinVotingPeriod() uint64 { return g.config.MinVotingPeriod() }

// ProposalThreshold returns the minimum weight needed to propose.
func (g *Governor) ProposalThreshold() *uint256.Int {
	return new(uint256.Int).Set(g.proposalThreshold)
}

// Administrator returns the administrator account.
func (g *Governor) Administrator() common.Address { return g.access.Administrator() }

// IsBlocked reports whether target is blocked.
func (g *Governor) IsBlocked(target common.Address) bool { return g.access.IsBlocked(target) }

// BlockedAddresses returns the block-list in ascending order.
func (g *Governor) BlockedAddresses() []common.Address { return g.access.Blocked() }

// CurrentHeight returns the height the engine currently evaluates against.
func (g *Governor) CurrentHeight() uint64 { return g.clock.CurrentHeight() }
