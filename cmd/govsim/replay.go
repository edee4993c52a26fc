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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/DCIP-Finance/investment-governance-v1/chain"
	"github.com/DCIP-Finance/investment-governance-v1/governance"
	"github.com/DCIP-Finance/investment-governance-v1/internal/config"
	"github.com/DCIP-Finance/investment-governance-v1/payout"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/hashicorp/go-bexpr"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var (
	untilFlag = &cli.Uint64Flag{
		Name:  "until",
		Usage: "Advance to this height after the last step before printing the summary",
	}
	settleFlag = &cli.BoolFlag{
		Name:  "settle",
		Usage: "Pay out and execute succeeded proposals after the last step",
	}
	liveFlag = &cli.BoolFlag{
		Name:  "live",
		Usage: "Read voting weight from the configured token instead of the script balances",
	}
	filterFlag = &cli.StringFlag{
		Name:  "filter",
		Usage: `Only list proposals matching a boolean expression, e.g. 'State == "Succeeded"'`,
	}
)

var replayCommand = &cli.Command{
	Name:      "replay",
	Usage:     "Replay a scripted sequence of governance transactions",
	ArgsUsage: "<script.toml>",
	Flags:     []cli.Flag{untilFlag, settleFlag, liveFlag, filterFlag},
	Action:    replay,
	Description: `
The replay command runs the [[Step]] entries of a script against a fresh
in-memory governance engine. Each step names the chain height it executes at,
the sending account and an operation:

    propose     Title, Description, Amount
    vote        Proposal, Support
    invalidate  Proposal
    execute     Proposal
    block       Target
    unblock     Target
    setquorum   Amount
    setperiod   Blocks
    setreward   Bps

Failed steps are reported and do not stop the replay. Voting weight is taken
from the [[Balance]] entries unless --live is given. Scripts ending in .yaml or
.yml are read as YAML with the same keys.

The proposal table can be narrowed with --filter. Selectors are ID, Title,
Proposer, Allocation, For, Against, Quorum, Ends and State; amounts are whole
token strings.`,
}

// replayScript is the TOML layout of a replay file.
type replayScript struct {
	Administrator common.Address  `toml:",omitempty" yaml:"Administrator"`
	Disburser     common.Address  `toml:",omitempty" yaml:"Disburser"`
	Balance       []replayBalance `yaml:"Balance"`
	Step          []replayStep    `yaml:"Step"`
}

type replayBalance struct {
	Account common.Address `yaml:"Account"`
	Weight  string         `yaml:"Weight"`
}

type replayStep struct {
	Height      uint64         `yaml:"Height"`
	From        common.Address `yaml:"From"`
	Op          string         `yaml:"Op"`
	Title       string         `toml:",omitempty" yaml:"Title"`
	Description string         `toml:",omitempty" yaml:"Description"`
	Amount      string         `toml:",omitempty" yaml:"Amount"`
	Proposal    uint64         `toml:",omitempty" yaml:"Proposal"`
	Support     bool           `toml:",omitempty" yaml:"Support"`
	Target      common.Address `toml:",omitempty" yaml:"Target"`
	Blocks      uint64         `toml:",omitempty" yaml:"Blocks"`
	Bps         uint64         `toml:",omitempty" yaml:"Bps"`
}

func loadScript(file string) (*replayScript, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := new(replayScript)
	switch filepath.Ext(file) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		err = dec.Decode(sc)
	default:
		err = config.Decode(f, sc)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return sc, nil
}

func replay(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one script file, got %d arguments", ctx.NArg())
	}
	sc, err := loadScript(ctx.Args().First())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Governance.Administrator == (common.Address{}) {
		cfg.Governance.Administrator = sc.Administrator
	}
	if cfg.Governance.Disburser == (common.Address{}) {
		cfg.Governance.Disburser = sc.Disburser
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	params, err := cfg.Governance.Params()
	if err != nil {
		return err
	}
	var filter *bexpr.Evaluator
	if expr := ctx.String(filterFlag.Name); expr != "" {
		if filter, err = bexpr.CreateEvaluator(expr); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}

	var oracle governance.BalanceOracle
	if ctx.Bool(liveFlag.Name) {
		if err := cfg.Chain.RequireRPC(); err != nil {
			return err
		}
		callTimeout, _, err := cfg.Chain.Timeouts()
		if err != nil {
			return err
		}
		client, err := ethclient.DialContext(ctx.Context, cfg.Chain.RPC)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPC, err)
		}
		defer client.Close()
		if oracle, err = chain.NewERC20Oracle(client, cfg.Chain.Token, callTimeout); err != nil {
			return err
		}
	}
	r, err := newReplayer(params, sc.Balance, oracle)
	if err != nil {
		return err
	}
	defer r.gov.Close()

	failed := r.run(sc.Step)
	if until := ctx.Uint64(untilFlag.Name); until > 0 {
		r.clock.Set(until)
	}
	if ctx.Bool(settleFlag.Name) {
		if err := r.settle(ctx.Context, params); err != nil {
			log.Warn("Settlement incomplete", "err", err)
		}
	}
	if err := r.render(ctx.App.Writer, filter); err != nil {
		return err
	}
	summary(ctx.App.Writer, len(sc.Step), failed)
	log.Info("Replay finished", "steps", len(sc.Step), "failed", failed, "proposals", r.gov.ProposalCount(), "height", r.clock.CurrentHeight())
	return nil
}

// replayer drives a governance engine through scripted steps and records the
// outcome of each.
type replayer struct {
	gov   *governance.Governor
	clock *chain.ManualClock
	rows  [][]string
}

// newReplayer creates an engine at height zero. A nil oracle selects an
// in-memory oracle seeded from balances.
func newReplayer(params *governance.Params, balances []replayBalance, oracle governance.BalanceOracle) (*replayer, error) {
	if oracle == nil {
		mem := chain.NewMemoryOracle()
		for _, b := range balances {
			weight, err := uint256.FromDecimal(b.Weight)
			if err != nil {
				return nil, fmt.Errorf("invalid balance of %s: %w", b.Account.Hex(), err)
			}
			mem.SetWeight(b.Account, weight)
		}
		oracle = mem
	}
	clock := chain.NewManualClock(0)
	gov, err := governance.NewGovernor(params, oracle, clock)
	if err != nil {
		return nil, err
	}
	return &replayer{gov: gov, clock: clock}, nil
}

// run executes steps in order and returns the number that failed.
func (r *replayer) run(steps []replayStep) int {
	var failed int
	for i, step := range steps {
		result, err := r.step(step)
		if err != nil {
			failed++
			result = "error: " + err.Error()
			log.Debug("Replay step failed", "step", i, "op", step.Op, "err", err)
		}
		r.rows = append(r.rows, []string{
			strconv.Itoa(i),
			strconv.FormatUint(r.clock.CurrentHeight(), 10),
			shortAddress(step.From),
			step.Op,
			result,
		})
	}
	return failed
}

func (r *replayer) step(s replayStep) (string, error) {
	if now := r.clock.Set(s.Height); now != s.Height {
		return "", fmt.Errorf("height %d is before current height %d", s.Height, now)
	}
	switch s.Op {
	case "propose":
		amount, err := uint256.FromDecimal(s.Amount)
		if err != nil {
			return "", fmt.Errorf("invalid amount %q: %w", s.Amount, err)
		}
		id, err := r.gov.Propose(s.From, s.Title, s.Description, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("proposal %d", id), nil

	case "vote":
		if err := r.gov.CastVote(s.From, s.Proposal, s.Support); err != nil {
			return "", err
		}
		if s.Support {
			return fmt.Sprintf("for %d", s.Proposal), nil
		}
		return fmt.Sprintf("against %d", s.Proposal), nil

	case "invalidate":
		return "ok", r.gov.InvalidateProposal(s.From, s.Proposal)
	case "execute":
		return "ok", r.gov.MarkExecuted(s.From, s.Proposal)
	case "block":
		return "ok", r.gov.BlockAddress(s.From, s.Target)
	case "unblock":
		return "ok", r.gov.UnblockAddress(s.From, s.Target)

	case "setquorum":
		amount, err := uint256.FromDecimal(s.Amount)
		if err != nil {
			return "", fmt.Errorf("invalid amount %q: %w", s.Amount, err)
		}
		return "ok", r.gov.SetQuorumThreshold(s.From, amount)
	case "setperiod":
		return "ok", r.gov.SetVotingPeriod(s.From, s.Blocks)
	case "setreward":
		return "ok", r.gov.SetProposalReward(s.From, s.Bps)
	}
	return "", fmt.Errorf("unknown operation %q", s.Op)
}

// settle pays out succeeded proposals through a logging disburser, acting as
// the configured disburser or else the administrator.
func (r *replayer) settle(ctx context.Context, params *governance.Params) error {
	account := params.Disburser
	if account == (common.Address{}) {
		account = params.Administrator
	}
	settler := payout.NewSettler(r.gov, &payout.LogDisburser{Log: log.New("module", "replay")}, account)
	n, err := settler.Settle(ctx)
	log.Info("Settled proposals", "count", n)
	return err
}

var proposalColumns = []string{"ID", "Title", "Proposer", "Allocation", "For", "Against", "Quorum", "Ends", "State"}

// proposalRow flattens a proposal into the selectors accepted by --filter.
func proposalRow(p *governance.Proposal) map[string]interface{} {
	return map[string]interface{}{
		"ID":         p.ID,
		"Title":      p.Title,
		"Proposer":   p.Proposer.Hex(),
		"Allocation": formatTokens(p.FundAllocation),
		"For":        formatTokens(p.VotesFor),
		"Against":    formatTokens(p.VotesAgainst),
		"Quorum":     formatTokens(p.QuorumVotes),
		"Ends":       p.VotingEndsAt(),
		"State":      p.State.String(),
	}
}

// render prints the step results followed by the proposals matching filter.
// A nil filter lists every proposal.
func (r *replayer) render(w io.Writer, filter *bexpr.Evaluator) error {
	steps := tablewriter.NewWriter(w)
	steps.SetHeader([]string{"#", "Height", "From", "Op", "Result"})
	steps.AppendBulk(r.rows)
	steps.Render()

	fmt.Fprintf(w, "\nProposals at height %d\n", r.clock.CurrentHeight())
	proposals := tablewriter.NewWriter(w)
	proposals.SetHeader(proposalColumns)
	for id := uint64(0); id < r.gov.ProposalCount(); id++ {
		p, err := r.gov.GetProposal(id)
		if err != nil {
			return err
		}
		row := proposalRow(p)
		if filter != nil {
			match, err := filter.Evaluate(row)
			if err != nil {
				return fmt.Errorf("filter proposal %d: %w", id, err)
			}
			if !match {
				continue
			}
		}
		proposals.Append([]string{
			strconv.FormatUint(p.ID, 10),
			p.Title,
			shortAddress(p.Proposer),
			row["Allocation"].(string),
			row["For"].(string),
			row["Against"].(string),
			row["Quorum"].(string),
			strconv.FormatUint(p.VotingEndsAt(), 10),
			p.State.String(),
		})
	}
	proposals.Render()
	return nil
}

func summary(w io.Writer, steps, failed int) {
	if failed == 0 {
		color.New(color.FgGreen).Fprintf(w, "\nAll %d steps succeeded\n", steps)
		return
	}
	color.New(color.FgRed).Fprintf(w, "\n%d of %d steps failed\n", failed, steps)
}
