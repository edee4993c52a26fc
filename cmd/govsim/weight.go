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
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DCIP-Finance/investment-governance-v1/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// maxConcurrentQueries bounds the balanceOf calls in flight.
const maxConcurrentQueries = 8

var (
	rateFlag = &cli.Float64Flag{
		Name:  "rate",
		Usage: "Maximum balanceOf calls per second (0 = unlimited)",
		Value: 20,
	}
	weightCommand = &cli.Command{
		Name:      "weight",
		Usage:     "Query the voting weight of accounts from the configured token",
		ArgsUsage: "<address> [<address>...]",
		Flags:     []cli.Flag{rateFlag},
		Action:    weight,
	}
)

var (
	countFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "Exit after this many head changes (0 = run until interrupted)",
	}
	headCommand = &cli.Command{
		Name:   "head",
		Usage:  "Follow the chain head used as the governance clock",
		Flags:  []cli.Flag{countFlag},
		Action: head,
	}
)

// balanceReader is satisfied by chain.ERC20Oracle.
type balanceReader interface {
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
}

func weight(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("no accounts given")
	}
	accounts := make([]common.Address, ctx.NArg())
	for i, arg := range ctx.Args().Slice() {
		if !common.IsHexAddress(arg) {
			return fmt.Errorf("invalid address %q", arg)
		}
		accounts[i] = common.HexToAddress(arg)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Chain.RequireRPC(); err != nil {
		return err
	}
	callTimeout, _, err := cfg.Chain.Timeouts()
	if err != nil {
		return err
	}
	threshold, err := uint256.FromDecimal(cfg.Governance.ProposalThreshold)
	if err != nil {
		return fmt.Errorf("invalid ProposalThreshold: %w", err)
	}
	client, err := ethclient.DialContext(ctx.Context, cfg.Chain.RPC)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPC, err)
	}
	defer client.Close()

	oracle, err := chain.NewERC20Oracle(client, cfg.Chain.Token, callTimeout)
	if err != nil {
		return err
	}
	weights, err := queryWeights(ctx.Context, oracle, accounts, newLimiter(ctx.Float64(rateFlag.Name)))
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Account", "Weight", "Can propose"})
	for i, account := range accounts {
		table.Append([]string{account.Hex(), formatTokens(weights[i]), fmt.Sprint(!weights[i].Lt(threshold))})
	}
	table.Render()
	return nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// queryWeights fetches all balances concurrently, paced by limiter. The first
// failure cancels the remaining queries.
func queryWeights(ctx context.Context, oracle balanceReader, accounts []common.Address, limiter *rate.Limiter) ([]*uint256.Int, error) {
	weights := make([]*uint256.Int, len(accounts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for i, account := range accounts {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			w, err := oracle.BalanceOf(ctx, account)
			if err != nil {
				return fmt.Errorf("%s: %w", account.Hex(), err)
			}
			weights[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return weights, nil
}

func head(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Chain.RPC == "" {
		return fmt.Errorf("no chain RPC endpoint configured")
	}
	_, poll, err := cfg.Chain.Timeouts()
	if err != nil {
		return err
	}
	client, err := ethclient.DialContext(ctx.Context, cfg.Chain.RPC)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPC, err)
	}
	defer client.Close()

	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return followHead(sigctx, ctx.App.Writer, client, poll, ctx.Int(countFlag.Name))
}

// followHead prints the height each time the follower observes a new head.
func followHead(ctx context.Context, w io.Writer, reader chain.HeadReader, interval time.Duration, count int) error {
	f := chain.NewHeadFollower(reader, interval)
	if err := f.Start(ctx); err != nil {
		return err
	}
	defer f.Stop()

	last := f.CurrentHeight()
	fmt.Fprintln(w, last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for seen := 1; count == 0 || seen < count; {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if h := f.CurrentHeight(); h != last {
				fmt.Fprintln(w, h)
				last = h
				seen++
			}
		}
	}
	return nil
}

var weiPerToken = uint256.NewInt(1e18)

// formatTokens renders a base unit amount as a decimal token amount.
func formatTokens(amount *uint256.Int) string {
	quo, rem := new(uint256.Int).DivMod(amount, weiPerToken, new(uint256.Int))
	if rem.IsZero() {
		return quo.Dec()
	}
	frac := rem.Dec()
	frac = strings.Repeat("0", 18-len(frac)) + frac
	return quo.Dec() + "." + strings.TrimRight(frac, "0")
}

func shortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + ".." + hex[len(hex)-4:]
}
