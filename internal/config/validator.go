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

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/DCIP-Finance/investment-governance-v1/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Environment overrides, applied on top of the configuration file.
const (
	envAdministrator = "GOVSIM_ADMINISTRATOR"
	envRPC           = "GOVSIM_RPC"
	envToken         = "GOVSIM_TOKEN"
)

var errNoRPC = errors.New("no chain RPC endpoint configured")

// ApplyEnv overrides file values with the GOVSIM_* environment variables.
// Precedence is environment > file > defaults.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(envAdministrator); v != "" {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", envAdministrator, v)
		}
		cfg.Governance.Administrator = common.HexToAddress(v)
	}
	cfg.Chain.RPC = getEnvOrDefault(envRPC, cfg.Chain.RPC)
	if v := os.Getenv(envToken); v != "" {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", envToken, v)
		}
		cfg.Chain.Token = common.HexToAddress(v)
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the configuration for consistency. It applies the same
// rules as the engine so that a bad file is reported before startup.
func (c *Config) Validate() error {
	if _, err := c.Governance.Params(); err != nil {
		return err
	}
	if _, _, err := c.Chain.Timeouts(); err != nil {
		return err
	}
	if c.Chain.RPC != "" && c.Chain.Token == (common.Address{}) {
		return fmt.Errorf("chain RPC %s configured without a token address", c.Chain.RPC)
	}
	return nil
}

// Params converts the section into engine parameters.
func (g *GovernanceConfig) Params() (*governance.Params, error) {
	if g.Administrator == (common.Address{}) {
		return nil, errors.New("governance administrator is not set")
	}
	threshold, err := parseAmount("ProposalThreshold", g.ProposalThreshold)
	if err != nil {
		return nil, err
	}
	quorum, err := parseAmount("QuorumThreshold", g.QuorumThreshold)
	if err != nil {
		return nil, err
	}
	if g.VotingPeriod < g.MinVotingPeriod {
		return nil, fmt.Errorf("VotingPeriod %d below MinVotingPeriod %d: %w", g.VotingPeriod, g.MinVotingPeriod, governance.ErrVotingPeriodTooShort)
	}
	if g.ProposalRewardBps > governance.MaxRewardBps {
		return nil, fmt.Errorf("ProposalRewardBps %d: %w", g.ProposalRewardBps, governance.ErrRewardOutOfRange)
	}
	return &governance.Params{
		Administrator:     g.Administrator,
		Disburser:         g.Disburser,
		ProposalThreshold: threshold,
		MinVotingPeriod:   g.MinVotingPeriod,
		Settings: &governance.Settings{
			QuorumThreshold:   quorum,
			VotingPeriod:      g.VotingPeriod,
			ProposalRewardBps: g.ProposalRewardBps,
		},
	}, nil
}

// Timeouts parses the call timeout and the head polling interval.
func (c *ChainConfig) Timeouts() (call, poll time.Duration, err error) {
	if call, err = parseDuration("CallTimeout", c.CallTimeout); err != nil {
		return 0, 0, err
	}
	if poll, err = parseDuration("PollInterval", c.PollInterval); err != nil {
		return 0, 0, err
	}
	return call, poll, nil
}

// RequireRPC fails unless an RPC endpoint and token are configured.
func (c *ChainConfig) RequireRPC() error {
	if c.RPC == "" {
		return errNoRPC
	}
	if c.Token == (common.Address{}) {
		return errors.New("no token address configured")
	}
	return nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return amount, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}
