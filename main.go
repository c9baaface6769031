// intentgate - Hybrid intent classification and dispatch for support traffic.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/intentgate/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdClassify:
		exitOnError(cli.HandleClassify(args))
	case cli.CmdStats:
		exitOnError(cli.HandleStats(args))
	case cli.CmdCache:
		exitOnError(cli.HandleCache(args))
	case cli.CmdIntents:
		exitOnError(cli.HandleIntents(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	case cli.CmdUnknown:
		cli.HandleUnknown(args)
		os.Exit(cli.ExitUsageError)
	default:
		cli.HandleHelp()
	}
}

// exitOnError prints the error and exits with the matching code. Usage
// mistakes, missing resources, and unreachable model backends each map
// to their own exit code so scripts can tell them apart.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(cli.GetExitCode(err))
}
