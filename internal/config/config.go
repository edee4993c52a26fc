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

// Package config loads the governance engine configuration from TOML.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/DCIP-Finance/investment-governance-v1/chain"
	"github.com/DCIP-Finance/investment-governance-v1/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is the top level configuration file.
type Config struct {
	Governance GovernanceConfig
	Chain      ChainConfig
}

// GovernanceConfig holds the engine parameters and initial settings. Token
// amounts are decimal strings in base units because they exceed 64 bits.
type GovernanceConfig struct {
	Administrator     common.Address
	Disburser         common.Address `toml:",omitempty"`
	ProposalThreshold string
	QuorumThreshold   string
	MinVotingPeriod   uint64
	VotingPeriod      uint64
	ProposalRewardBps uint64
}

// ChainConfig describes the chain backing the weight oracle. Durations use
// time.ParseDuration syntax.
type ChainConfig struct {
	RPC          string         `toml:",omitempty"`
	Token        common.Address `toml:",omitempty"`
	CallTimeout  string
	PollInterval string
}

// Default returns the default configuration. The administrator is left unset.
func Default() *Config {
	params := governance.DefaultParams(common.Address{})
	return &Config{
		Governance: GovernanceConfig{
			ProposalThreshold: params.ProposalThreshold.Dec(),
			QuorumThreshold:   params.Settings.QuorumThreshold.Dec(),
			MinVotingPeriod:   params.MinVotingPeriod,
			VotingPeriod:      params.Settings.VotingPeriod,
			ProposalRewardBps: params.Settings.ProposalRewardBps,
		},
		Chain: ChainConfig{
			CallTimeout:  chain.DefaultCallTimeout.String(),
			PollInterval: chain.DefaultPollInterval.String(),
		},
	}
}

// Load decodes file into cfg. Fields absent from the file keep their value.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// Dump writes cfg as TOML.
func Dump(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Decode reads a TOML document other than the configuration file using the
// same key conventions.
func Decode(r io.Reader, v interface{}) error {
	return tomlSettings.NewDecoder(r).Decode(v)
}
