// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/ledgerwatch/log/v3"
	"github.com/urfave/cli/v2"

	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/txpool"
)

var (
	InputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "File with one hex encoded pooled transaction per line, stdin when unset",
	}
	TrustedSetupFlag = cli.StringFlag{
		Name:  "trusted-setup",
		Usage: "Trusted setup JSON file, the embedded mainnet setup when unset",
	}
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML file overriding the validator defaults",
	}
	WorkersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "Maximum number of transactions verified concurrently",
		Value: txpool.DefaultConfig.ValidationWorkers,
	}
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Set the log level for console logs (crit, error, warn, info, debug, trace or 0-5)",
		Value: "info",
	}
	PacketFlag = cli.BoolFlag{
		Name:  "packet",
		Usage: "Treat every input line as a PooledTransactions66 packet",
	}
	RequestIDFlag = cli.Uint64Flag{
		Name:  "request-id",
		Usage: "Request id of the produced packets",
	}
	ExcessBlobGasFlag = cli.Uint64Flag{
		Name:  "excess-blob-gas",
		Usage: "Report the blob fee each transaction pays at this excess blob gas",
	}
)

var decodeCommand = cli.Command{
	Action: decodeTransactions,
	Name:   "decode",
	Usage:  "Decode pooled transactions and print a JSON summary per line",
	Flags: []cli.Flag{
		&InputFlag,
		&PacketFlag,
		&ExcessBlobGasFlag,
	},
}

var validateCommand = cli.Command{
	Action: validateTransactions,
	Name:   "validate",
	Usage:  "Decode pooled transactions and verify blob sidecars against their commitments",
	Flags: []cli.Flag{
		&InputFlag,
		&PacketFlag,
		&ExcessBlobGasFlag,
		&TrustedSetupFlag,
		&ConfigFlag,
		&WorkersFlag,
	},
}

var packCommand = cli.Command{
	Action: packTransactions,
	Name:   "pack",
	Usage:  "Print the GetPooledTransactions66 request and PooledTransactions66 response for the input transactions",
	Flags: []cli.Flag{
		&InputFlag,
		&PacketFlag,
		&RequestIDFlag,
	},
}

var versionCommand = cli.Command{
	Action: printVersion,
	Name:   "version",
	Usage:  "Print version numbers",
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = params.ClientName
	app.Version = params.VersionWithCommit(params.GitCommit)
	app.Usage = "Inspect and verify EIP-4844 pooled transactions"
	app.UsageText = app.Name + ` [command] [flags]`
	app.Commands = []*cli.Command{
		&decodeCommand,
		&validateCommand,
		&packCommand,
		&versionCommand,
	}
	app.Flags = []cli.Flag{
		&VerbosityFlag,
	}
	app.Before = setupLogger
	return app
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseVerbosity(s string) (log.Lvl, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(log.LvlCrit) || n > int(log.LvlTrace) {
			return 0, fmt.Errorf("verbosity %d out of range", n)
		}
		return log.Lvl(n), nil
	}
	return log.LvlFromString(s)
}

func setupLogger(ctx *cli.Context) error {
	lvl, err := parseVerbosity(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(ctx.App.ErrWriter, log.TerminalFormat())))
	return nil
}

// validatorConfig applies the config file and then the flags on top of the defaults.
func validatorConfig(ctx *cli.Context) (txpool.Config, error) {
	cfg := txpool.DefaultConfig
	if path := ctx.String(ConfigFlag.Name); path != "" {
		if err := txpool.ReadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(WorkersFlag.Name) {
		cfg.ValidationWorkers = ctx.Int(WorkersFlag.Name)
	}
	return cfg, cfg.Check()
}

func trustedSetup(ctx *cli.Context, logger log.Logger) (*kzg.TrustedSetup, error) {
	if path := ctx.String(TrustedSetupFlag.Name); path != "" {
		logger.Info("Loading trusted setup", "file", path)
		return kzg.LoadTrustedSetup(path)
	}
	return kzg.DefaultTrustedSetup()
}

func printVersion(ctx *cli.Context) error {
	w := ctx.App.Writer
	fmt.Fprintln(w, params.ClientName)
	fmt.Fprintln(w, "Version:", params.VersionWithMeta)
	if params.GitCommit != "" {
		fmt.Fprintln(w, "Git Commit:", params.GitCommit)
	}
	if params.GitTag != "" {
		fmt.Fprintln(w, "Git Tag:", params.GitTag)
	}
	fmt.Fprintln(w, "Go Version:", runtime.Version())
	fmt.Fprintln(w, "OS/Arch:", runtime.GOOS+"/"+runtime.GOARCH)
	return nil
}
