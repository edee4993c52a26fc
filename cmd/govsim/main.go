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

// govsim is a command line tool for the token-weighted governance engine.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/DCIP-Finance/investment-governance-v1/internal/config"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs as JSON to a rotated file instead of the terminal",
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:  "log.maxsize",
		Usage: "Maximum size in megabytes of the log file before it gets rotated",
		Value: 100,
	}
	logMaxBackupsFlag = &cli.IntFlag{
		Name:  "log.maxbackups",
		Usage: "Maximum number of rotated log files to retain",
		Value: 10,
	}
)

// logOutputFile is the rotated log file, if any, closed when the app exits.
var logOutputFile io.WriteCloser

func newApp() *cli.App {
	return &cli.App{
		Name:  "govsim",
		Usage: "token-weighted governance engine tools",
		Flags: []cli.Flag{
			configFileFlag,
			verbosityFlag,
			logFileFlag,
			logMaxSizeFlag,
			logMaxBackupsFlag,
		},
		Before: setupLogging,
		After:  closeLogging,
		Commands: []*cli.Command{
			replayCommand,
			weightCommand,
			headCommand,
			dumpConfigCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) error {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))

	if file := ctx.String(logFileFlag.Name); file != "" {
		logOutputFile = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    ctx.Int(logMaxSizeFlag.Name),
			MaxBackups: ctx.Int(logMaxBackupsFlag.Name),
			Compress:   true,
		}
		log.SetDefault(log.NewLogger(log.JSONHandlerWithLevel(logOutputFile, level)))
		return nil
	}
	var (
		output   = io.Writer(os.Stderr)
		usecolor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if usecolor {
		output = colorable.NewColorable(os.Stderr)
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(output, level, usecolor)))
	return nil
}

func closeLogging(ctx *cli.Context) error {
	if logOutputFile == nil {
		return nil
	}
	err := logOutputFile.Close()
	logOutputFile = nil
	return err
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then environment overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := config.Load(file, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var dumpConfigCommand = &cli.Command{
	Name:   "dumpconfig",
	Usage:  "Show the effective configuration",
	Action: dumpConfig,
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return config.Dump(ctx.App.Writer, cfg)
}
