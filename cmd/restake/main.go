// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "restake",
		Usage:     "Staking and restaking accounting ledger",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			networkFlag,
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiLogsLimitFlag,
			apiSlowQueriesThresholdFlag,
			apiLog5xxErrorsFlag,
			enableAPILogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			cacheFlag,
			epochLengthFlag,
			budgetFlag,
			skipLogsFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			skipNTPFlag,
		},
		Action: serveAction,
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the ledger API (default)",
				Action: serveAction,
			},
			{
				Name:  "sweep",
				Usage: "Drive the liquid staking claim sweep to completion",
				Flags: []cli.Flag{
					callerFlag,
					maxRoundsFlag,
				},
				Action: sweepAction,
			},
			{
				Name:  "export",
				Usage: "Export the ledger store into a compressed snapshot",
				Flags: []cli.Flag{
					fileFlag,
				},
				Action: exportAction,
			},
			{
				Name:  "import",
				Usage: "Import a compressed snapshot into an empty ledger store",
				Flags: []cli.Flag{
					fileFlag,
				},
				Action: importAction,
			},
			{
				Name:   "status",
				Usage:  "Print the ledger status",
				Action: statusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
