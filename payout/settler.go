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

// Package payout settles succeeded proposals: it pays the proposer reward
// through an external disburser and marks the proposal executed.
package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DCIP-Finance/investment-governance-v1/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DCIP-Finance/investment-governance-v1/payout"

var (
	disbursedCounter = metrics.NewRegisteredCounter("payout/disbursed", nil)
	failedCounter    = metrics.NewRegisteredCounter("payout/failed", nil)
)

// Payout describes one disbursement. Digest identifies the proposal content
// and stays the same across retries.
type Payout struct {
	ProposalID uint64
	Digest     common.Hash
	Proposer   common.Address
	Allocation *uint256.Int
	Reward     *uint256.Int
}

// Disburser transfers funds for a succeeded proposal. Implementations should
// treat a repeated Digest as already paid.
type Disburser interface {
	Disburse(ctx context.Context, p Payout) error
}

// Ledger is the part of the governance engine the settler drives.
type Ledger interface {
	ProposalCount() uint64
	GetProposal(id uint64) (*governance.Proposal, error)
	ProposalReward() uint64
	MarkExecuted(caller common.Address, id uint64) error
}

// Reward returns allocation * bps / 10000, rounded down.
func Reward(allocation *uint256.Int, bps uint64) *uint256.Int {
	reward, overflow := new(uint256.Int).MulDivOverflow(allocation, uint256.NewInt(bps), uint256.NewInt(governance.MaxRewardBps))
	if overflow {
		// Only reachable for bps above 10000, which the engine never stores.
		return new(uint256.Int).Set(allocation)
	}
	return reward
}

// Settler pays out succeeded proposals.
type Settler struct {
	ledger    Ledger
	disburser Disburser
	account   common.Address // identity used for MarkExecuted
	floor     uint64         // all proposals below are terminal
	log       log.Logger
	tracer    trace.Tracer
}

// NewSettler creates a settler that marks proposals executed as account.
func NewSettler(ledger Ledger, disburser Disburser, account common.Address) *Settler {
	return &Settler{
		ledger:    ledger,
		disburser: disburser,
		account:   account,
		log:       log.New("module", "payout"),
		tracer:    otel.Tracer(tracerName),
	}
}

// Settle runs a single pass over the proposals and returns the number that
// were paid and marked executed. Failures are collected and do not stop the
// pass; a proposal whose disbursement failed is retried on the next pass.
func (s *Settler) Settle(ctx context.Context) (paid int, err error) {
	ctx, span := s.tracer.Start(ctx, "payout.Settle")
	defer func() {
		span.SetAttributes(attribute.Int("settled", paid))
		endSpan(span, err)
	}()

	var (
		errs    []error
		advance = true
		count   = s.ledger.ProposalCount()
		bps     = s.ledger.ProposalReward()
	)
	span.SetAttributes(attribute.Int64("floor", int64(s.floor)), attribute.Int64("proposals", int64(count)))
	for id := s.floor; id < count; id++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		p, err := s.ledger.GetProposal(id)
		if err != nil {
			errs = append(errs, err)
			advance = false
			continue
		}
		if p.State != governance.StateSucceeded {
			if advance && p.State.Terminal() {
				s.floor = id + 1
			} else {
				advance = false
			}
			continue
		}
		advance = false
		if err := s.settle(ctx, p, bps); err != nil {
			failedCounter.Inc(1)
			errs = append(errs, fmt.Errorf("proposal %d: %w", id, err))
			continue
		}
		paid++
	}
	return paid, errors.Join(errs...)
}

func (s *Settler) settle(ctx context.Context, p *governance.Proposal, bps uint64) (err error) {
	ctx, span := s.tracer.Start(ctx, "payout.Disburse", trace.WithAttributes(
		attribute.Int64("proposal", int64(p.ID)),
		attribute.String("proposer", p.Proposer.Hex()),
	))
	defer func() { endSpan(span, err) }()

	payout := Payout{
		ProposalID: p.ID,
		Digest:     p.Hash(),
		Proposer:   p.Proposer,
		Allocation: p.FundAllocation,
		Reward:     Reward(p.FundAllocation, bps),
	}
	span.SetAttributes(attribute.String("digest", payout.Digest.Hex()), attribute.String("reward", payout.Reward.Dec()))
	if err := s.disburser.Disburse(ctx, payout); err != nil {
		s.log.Warn("Disbursement failed", "id", p.ID, "digest", payout.Digest, "err", err)
		return fmt.Errorf("disburse: %w", err)
	}
	if err := s.ledger.MarkExecuted(s.account, p.ID); err != nil {
		s.log.Error("Disbursed proposal could not be marked executed", "id", p.ID, "digest", payout.Digest, "err", err)
		return fmt.Errorf("mark executed: %w", err)
	}
	disbursedCounter.Inc(1)
	s.log.Info("Proposal settled", "id", p.ID, "proposer", p.Proposer, "allocation", p.FundAllocation, "reward", payout.Reward)
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Run calls Settle every interval until ctx is cancelled.
func (s *Settler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := s.Settle(ctx); err != nil {
				s.log.Warn("Settlement pass incomplete", "settled", n, "err", err)
			} else if n > 0 {
				s.log.Debug("Settlement pass complete", "settled", n)
			}
		case <-ctx.Done():
			s.log.Info("Settler stopped")
			return
		}
	}
}

// LogDisburser only logs payouts. It stands in for a real transfer backend in
// simulations.
type LogDisburser struct {
	Log log.Logger
}

func (d *LogDisburser) Disburse(ctx context.Context, p Payout) error {
	logger := d.Log
	if logger == nil {
		logger = log.Root()
	}
	logger.Info("Disbursing proposal funds", "id", p.ProposalID, "digest", p.Digest, "to", p.Proposer, "allocation", p.Allocation, "reward", p.Reward)
	return nil
}
