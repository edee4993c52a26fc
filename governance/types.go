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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// ProposalState represents the lifecycle state of a proposal. The numeric
// values are part of the public surface and must not be reordered.
type ProposalState uint8

const (
	StatePending     ProposalState = iota // reserved for a pre-activation delay
	StateActive                           // accepting votes
	StateInvalidated                      // cancelled by the administrator
	StateDefeated                         // voting ended without quorum or majority
	StateSucceeded                        // voting ended with quorum and majority
	StateExecuted                         // payout completed by the disburser
)

var stateNames = [...]string{"Pending", "Active", "Invalidated", "Defeated", "Succeeded", "Executed"}

func (s ProposalState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transition can leave s.
func (s ProposalState) Terminal() bool {
	return s == StateInvalidated || s == StateDefeated || s == StateExecuted
}

// Basis point bounds and engine defaults. Heights assume 3 second blocks.
const (
	MaxRewardBps = 10000

	DefaultMinVotingPeriod   = 14400  // 12 hours
	DefaultVotingPeriod      = 201600 // 7 days
	DefaultProposalRewardBps = 250    // 2.5%
)

// Proposal is a funding proposal together with its vote tallies and the
// configuration snapshot taken when it was created.
type Proposal struct {
	ID             uint64         // sequential, zero based
	Title          string         // may be empty
	Description    string         // unbounded
	FundAllocation *uint256.Int   // requested amount
	Proposer       common.Address // creator, counted as the first "for" voter
	CreatedAt      uint64         // chain height at creation

	VotesFor     *uint256.Int
	VotesAgainst *uint256.Int

	QuorumVotes  *uint256.Int // quorum threshold in effect at creation
	VotingPeriod uint64       // voting period in effect at creation

	// State is the derived state when returned by the Governor. Inside the
	// ledger it only ever holds Active or a terminal write.
	State ProposalState

	voters []common.Address // casting order, append only
}

// VotingEndsAt returns the first height at which the proposal no longer
// accepts votes.
func (p *Proposal) VotingEndsAt() uint64 {
	if p.CreatedAt > math.MaxUint64-p.VotingPeriod {
		return math.MaxUint64
	}
	return p.CreatedAt + p.VotingPeriod
}

// QuorumReached reports whether the combined for and against weight meets the
// proposal's quorum snapshot.
func (p *Proposal) QuorumReached() bool {
	total, overflow := new(uint256.Int).AddOverflow(p.VotesFor, p.VotesAgainst)
	return overflow || !total.Lt(p.QuorumVotes)
}

// Copy returns a deep copy of the proposal.
func (p *Proposal) Copy() *Proposal {
	cpy := *p
	cpy.FundAllocation = new(uint256.Int).Set(p.FundAllocation)
	cpy.VotesFor = new(uint256.Int).Set(p.VotesFor)
	cpy.VotesAgainst = new(uint256.Int).Set(p.VotesAgainst)
	cpy.QuorumVotes = new(uint256.Int).Set(p.QuorumVotes)
	cpy.voters = append([]common.Address(nil), p.voters...)
	return &cpy
}

// proposalRLP is the consensus encoding of the immutable proposal fields.
type proposalRLP struct {
	ID             uint64
	Title          string
	Description    string
	FundAllocation *big.Int
	Proposer       common.Address
	CreatedAt      uint64
}

// Hash returns the keccak256 hash of the RLP encoded immutable fields. Tallies
// and state are excluded so the hash is stable over the proposal's lifetime.
func (p *Proposal) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(&proposalRLP{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		FundAllocation: p.FundAllocation.ToBig(),
		Proposer:       p.Proposer,
		CreatedAt:      p.CreatedAt,
	})
	if err != nil {
		panic("can't encode proposal: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}

// Vote is a single ballot on a proposal.
type Vote struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool         // true = for, false = against
	Weight     *uint256.Int // weight reported by the oracle when cast
	Height     uint64       // chain height when cast
}

// Settings holds the administrator controlled values. Quorum and voting
// period are copied into every proposal at creation.
type Settings struct {
	QuorumThreshold   *uint256.Int // minimum for+against weight
	VotingPeriod      uint64       // voting window in blocks
	ProposalRewardBps uint64       // proposer reward in basis points of the allocation
}

// Copy returns a deep copy of the settings.
func (s *Settings) Copy() *Settings {
	cpy := *s
	cpy.QuorumThreshold = new(uint256.Int).Set(s.QuorumThreshold)
	return &cpy
}

// DefaultSettings returns the default governance settings.
func DefaultSettings() *Settings {
	return &Settings{
		QuorumThreshold:   tokens(25000),
		VotingPeriod:      DefaultVotingPeriod,
		ProposalRewardBps: DefaultProposalRewardBps,
	}
}

// Params are fixed for the lifetime of a Governor.
type Params struct {
	Administrator     common.Address // sole administrator
	Disburser         common.Address // may mark proposals executed, zero for administrator only
	ProposalThreshold *uint256.Int   // minimum weight required to propose
	MinVotingPeriod   uint64         // floor for Settings.VotingPeriod
	Settings          *Settings      // initial settings
}

// DefaultParams returns the default parameters for the given administrator.
func DefaultParams(admin common.Address) *Params {
	return &Params{
		Administrator:     admin,
		ProposalThreshold: tokens(1000),
		MinVotingPeriod:   DefaultMinVotingPeriod,
		Settings:          DefaultSettings(),
	}
}

// tokens converts whole tokens to 18 decimal weight units.
func tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}
