// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/restake/api"
	"github.com/vechain/restake/api/admin/health"
	"github.com/vechain/restake/cmd/restake/httpserver"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/metrics"
)

func serveAction(ctx *cli.Context) error {
	logLevel := initLogger(ctx)

	if ctx.GlobalBool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	l, err := openLedger(ctx, !ctx.GlobalBool(skipLogsFlag.Name))
	if err != nil {
		return err
	}
	defer l.Close()

	if !ctx.GlobalBool(skipNTPFlag.Name) {
		go checkClockOffset()
	}

	var apiLogs atomic.Bool
	apiLogs.Store(ctx.GlobalBool(enableAPILogsFlag.Name))

	contracts := l.gene.Contracts()
	apiHandler, apiCloser := api.New(l.runtime, l.logDB, api.Contracts{
		Restaking:     contracts.Restaking,
		LiquidStaking: contracts.LiquidStaking,
	}, api.Options{
		AllowedOrigins:       ctx.GlobalString(apiCorsFlag.Name),
		LogsLimit:            ctx.GlobalUint64(apiLogsLimitFlag.Name),
		SkipLogs:             ctx.GlobalBool(skipLogsFlag.Name),
		PprofOn:              ctx.GlobalBool(pprofFlag.Name),
		EnableMetrics:        ctx.GlobalBool(enableMetricsFlag.Name),
		EnableReqLogger:      &apiLogs,
		SlowQueriesThreshold: time.Duration(ctx.GlobalUint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		Log5xxErrors:         ctx.GlobalBool(apiLog5xxErrorsFlag.Name),
	})
	defer apiCloser()

	apiURL, srvCloser, err := httpserver.StartAPIServer(ctx.GlobalString(apiAddrFlag.Name), apiHandler)
	if err != nil {
		return err
	}
	defer func() { log.Info("stopping API server..."); srvCloser() }()

	var metricsURL string
	if ctx.GlobalBool(enableMetricsFlag.Name) {
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.GlobalString(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping metrics server..."); closeFunc() }()
		metricsURL = url
	}

	healthStatus := health.New(l.clock, l.remote)
	var adminURL string
	if ctx.GlobalBool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(
			ctx.GlobalString(adminAddrFlag.Name),
			logLevel,
			healthStatus,
			&apiLogs,
			ctx.GlobalBool(enableMetricsFlag.Name),
		)
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping admin server..."); closeFunc() }()
		adminURL = url
	}

	printStartupMessage(l, apiURL, metricsURL, adminURL)

	exitCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(exitCtx)
	group.Go(func() error {
		l.remote.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		healthStatus.Run(groupCtx, l.runtime)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("exiting...")
		return nil
	})
	return group.Wait()
}

func printStartupMessage(l *ledger, apiURL, metricsURL, adminURL string) {
	orNone := func(s string) string {
		if s == "" {
			return "disabled"
		}
		return s
	}
	contracts := l.gene.Contracts()
	fmt.Printf(`Starting %v
    Network         [ %v %v ]
    Clock           [ #%v epoch %v ]
    Restaking       [ %v ]
    Liquid staking  [ %v ]
    Instance dir    [ %v ]
    API portal      [ %v ]
    Metrics         [ %v ]
    Admin           [ %v ]
`,
		fullVersion(),
		l.gene.ID(), l.gene.Name(),
		l.clock.Block(), l.clock.Epoch(),
		contracts.Restaking,
		contracts.LiquidStaking,
		l.dir,
		apiURL,
		orNone(metricsURL),
		orNone(adminURL),
	)
}
