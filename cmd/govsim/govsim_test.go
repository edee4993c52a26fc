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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DCIP-Finance/investment-governance-v1/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-bexpr"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	carol  = common.HexToAddress("0x0000000000000000000000000000000000000003")
	mallet = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

const weightW = "2000000000000000000000"

func testBalances() []replayBalance {
	return []replayBalance{
		{Account: admin, Weight: weightW},
		{Account: alice, Weight: weightW},
		{Account: bob, Weight: weightW},
		{Account: carol, Weight: weightW},
	}
}

func TestReplaySteps(t *testing.T) {
	r, err := newReplayer(governance.DefaultParams(admin), testBalances(), nil)
	require.NoError(t, err)
	defer r.gov.Close()

	steps := []replayStep{
		{Height: 1, From: admin, Op: "setquorum", Amount: "10000000000000000000000"},
		{Height: 2, From: alice, Op: "propose", Title: "Byont Tokens", Amount: "5000000000000000000000"},
		{Height: 3, From: bob, Op: "vote", Proposal: 0, Support: true},
		{Height: 4, From: alice, Op: "propose", Title: "Second", Amount: "1"},
		{Height: 5, From: admin, Op: "invalidate", Proposal: 1},
		{Height: 6, From: bob, Op: "vote", Proposal: 1, Support: true},
		{Height: 7, From: admin, Op: "block", Target: carol},
		{Height: 8, From: carol, Op: "propose", Amount: "1"},
		{Height: 9, From: carol, Op: "vote", Proposal: 0},
		{Height: 10, From: mallet, Op: "propose", Amount: "1"},
		{Height: 11, From: alice, Op: "propose", Title: "Third", Amount: "1"},
		{Height: 5, From: alice, Op: "vote", Proposal: 2},
		{Height: 12, From: alice, Op: "bogus"},
		{Height: 13, From: bob, Op: "setperiod", Blocks: 14399},
	}
	failed := r.run(steps)
	require.Equal(t, 7, failed)
	require.Len(t, r.rows, len(steps))

	require.Equal(t, "proposal 0", r.rows[1][4])
	require.Equal(t, "for 0", r.rows[2][4])
	require.Contains(t, r.rows[5][4], "not currently active")
	require.Contains(t, r.rows[7][4], "blocked")
	require.Contains(t, r.rows[9][4], "insufficient voting weight")
	require.Equal(t, "proposal 2", r.rows[10][4], "failed proposals do not consume ids")
	require.Contains(t, r.rows[11][4], "before current height")
	require.Contains(t, r.rows[12][4], "unknown operation")
	require.Contains(t, r.rows[13][4], "unauthorized")

	require.Equal(t, uint64(3), r.gov.ProposalCount())
	reached, err := r.gov.QuorumReached(0)
	require.NoError(t, err)
	require.False(t, reached, "2W of a 5W quorum")

	r.clock.Set(300000)
	p, err := r.gov.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, governance.StateInvalidated, p.State)
	p, err = r.gov.GetProposal(0)
	require.NoError(t, err)
	require.Equal(t, governance.StateDefeated, p.State)

	var out bytes.Buffer
	require.NoError(t, r.render(&out, nil))
	require.Contains(t, out.String(), "Invalidated")
	require.Contains(t, out.String(), "Byont Tokens")
	require.Contains(t, out.String(), "STATE")

	filter, err := bexpr.CreateEvaluator(`State == "Invalidated"`)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, r.render(&out, filter))
	require.Contains(t, out.String(), "Invalidated")
	require.NotContains(t, out.String(), "Defeated")

	filter, err = bexpr.CreateEvaluator(`Title contains "Third"`)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, r.render(&out, filter))
	require.Contains(t, out.String(), "Third")
	require.NotContains(t, out.String(), "Byont Tokens")
}

func TestSummary(t *testing.T) {
	var out bytes.Buffer
	summary(&out, 4, 0)
	require.Contains(t, out.String(), "All 4 steps succeeded")

	out.Reset()
	summary(&out, 4, 3)
	require.Contains(t, out.String(), "3 of 4 steps failed")
}

func TestReplaySettle(t *testing.T) {
	params := governance.DefaultParams(admin)
	params.Settings.QuorumThreshold = uint256.NewInt(1)
	r, err := newReplayer(params, testBalances(), nil)
	require.NoError(t, err)
	defer r.gov.Close()

	require.Zero(t, r.run([]replayStep{
		{Height: 1, From: alice, Op: "propose", Title: "t", Amount: "5000000000000000000000"},
		{Height: 2, From: bob, Op: "vote", Proposal: 0, Support: true},
	}))
	r.clock.Set(1 + governance.DefaultVotingPeriod)
	require.NoError(t, r.settle(context.Background(), params))

	p, err := r.gov.GetProposal(0)
	require.NoError(t, err)
	require.Equal(t, governance.StateExecuted, p.State)
}

func TestNewReplayerInvalidBalance(t *testing.T) {
	_, err := newReplayer(governance.DefaultParams(admin), []replayBalance{{Account: alice, Weight: "lots"}}, nil)
	require.Error(t, err)
}

const testScript = `
Administrator = "0x00000000000000000000000000000000000000ad"

[[Balance]]
Account = "0x0000000000000000000000000000000000000001"
Weight = "2000000000000000000000"

[[Balance]]
Account = "0x0000000000000000000000000000000000000002"
Weight = "2000000000000000000000"

[[Step]]
Height = 1
From = "0x00000000000000000000000000000000000000ad"
Op = "setquorum"
Amount = "3000000000000000000000"

[[Step]]
Height = 2
From = "0x0000000000000000000000000000000000000001"
Op = "propose"
Title = "Byont Tokens"
Description = "Its great."
Amount = "5000000000000000000000"

[[Step]]
Height = 3
From = "0x0000000000000000000000000000000000000002"
Op = "vote"
Proposal = 0
Support = true
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "script.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestReplayCommand(t *testing.T) {
	file := writeScript(t, testScript)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"govsim", "--verbosity", "0", "replay", "--until", "300000", "--settle", file}))

	text := out.String()
	require.Contains(t, text, "proposal 0")
	require.Contains(t, text, "Executed")
	require.Contains(t, text, "5000")
}

const testYAMLScript = `
Administrator: "0x00000000000000000000000000000000000000ad"
Balance:
  - Account: "0x0000000000000000000000000000000000000001"
    Weight: "2000000000000000000000"
Step:
  - Height: 1
    From: "0x0000000000000000000000000000000000000001"
    Op: propose
    Title: From YAML
    Amount: "7000000000000000000000"
  - Height: 2
    From: "0x0000000000000000000000000000000000000002"
    Op: propose
    Amount: "1"
`

func TestLoadScriptYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testYAMLScript), 0o644))

	sc, err := loadScript(file)
	require.NoError(t, err)
	require.Equal(t, admin, sc.Administrator)
	require.Len(t, sc.Balance, 1)
	require.Equal(t, alice, sc.Balance[0].Account)
	require.Len(t, sc.Step, 2)
	require.Equal(t, "propose", sc.Step[0].Op)
	require.Equal(t, "From YAML", sc.Step[0].Title)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"govsim", "--verbosity", "0", "replay", "--filter", `State == "Active"`, file}))
	require.Contains(t, out.String(), "From YAML")
	require.Contains(t, out.String(), "1 of 2 steps failed")

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("Unknown: 1\n"), 0o644))
	_, err = loadScript(bad)
	require.Error(t, err)
}

func TestReplayCommandErrors(t *testing.T) {
	run := func(args ...string) error {
		app := newApp()
		app.Writer = new(bytes.Buffer)
		return app.Run(append([]string{"govsim", "--verbosity", "0"}, args...))
	}
	require.Error(t, run("replay"))

	file := writeScript(t, "Administrator = \"0x00000000000000000000000000000000000000ad\"\nUnknown = 1\n")
	require.Error(t, run("replay", file))

	// No administrator in script or configuration
	file = writeScript(t, "[[Balance]]\nAccount = \"0x0000000000000000000000000000000000000001\"\nWeight = \"1\"\n")
	require.Error(t, run("replay", file))

	file = writeScript(t, testScript)
	require.Error(t, run("replay", "--filter", "State ==", file))
}

func TestDumpConfigCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"govsim", "dumpconfig"}))
	require.Contains(t, out.String(), "[Governance]")
	require.Contains(t, out.String(), "25000000000000000000000")
	require.Contains(t, out.String(), "[Chain]")
}

// fixedBalances answers BalanceOf from a map.
type fixedBalances struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
	err      error
}

func (f *fixedBalances) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if w, ok := f.balances[account]; ok {
		return w, nil
	}
	return new(uint256.Int), nil
}

func TestQueryWeights(t *testing.T) {
	oracle := &fixedBalances{balances: map[common.Address]*uint256.Int{
		alice: uint256.NewInt(10),
		bob:   uint256.NewInt(20),
	}}
	accounts := []common.Address{alice, bob, carol}
	for i := 0; i < 20; i++ {
		accounts = append(accounts, common.BigToAddress(uint256.NewInt(uint64(0x100+i)).ToBig()))
	}
	weights, err := queryWeights(context.Background(), oracle, accounts, newLimiter(0))
	require.NoError(t, err)
	require.Len(t, weights, len(accounts))
	require.Equal(t, uint64(10), weights[0].Uint64())
	require.Equal(t, uint64(20), weights[1].Uint64())
	require.True(t, weights[2].IsZero())

	oracle.err = errors.New("execution reverted")
	_, err = queryWeights(context.Background(), oracle, accounts, newLimiter(0))
	require.ErrorIs(t, err, oracle.err)
}

func TestQueryWeightsRateLimited(t *testing.T) {
	oracle := &fixedBalances{balances: map[common.Address]*uint256.Int{}}
	accounts := []common.Address{alice, bob, carol, mallet}

	start := time.Now()
	weights, err := queryWeights(context.Background(), oracle, accounts, newLimiter(100))
	require.NoError(t, err)
	require.Len(t, weights, 4)
	// One token is available up front, the other three arrive at 10ms intervals
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = queryWeights(ctx, oracle, accounts, newLimiter(1))
	require.Error(t, err)
}

// stepHead advances by one block per read.
type stepHead struct {
	mu   sync.Mutex
	next uint64
}

func (s *stepHead) BlockNumber(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next, nil
}

func TestFollowHead(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var out bytes.Buffer
	require.NoError(t, followHead(context.Background(), &out, &stepHead{next: 9}, time.Millisecond, 3))

	lines := strings.Fields(out.String())
	require.Len(t, lines, 3)
	require.Equal(t, "10", lines[0])
	require.Less(t, lines[0], lines[2])
}

func TestFormatTokens(t *testing.T) {
	half, _ := uint256.FromDecimal("1500000000000000000")
	tests := []struct {
		in   *uint256.Int
		want string
	}{
		{new(uint256.Int), "0"},
		{uint256.NewInt(1e18), "1"},
		{half, "1.5"},
		{uint256.NewInt(1), "0.000000000000000001"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatTokens(tt.in))
	}
}

func TestShortAddress(t *testing.T) {
	require.Equal(t, "0x0000..00Ad", shortAddress(admin))
}
