// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/genesis"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
)

func fatal(args ...any) {
	var w io.Writer
	outf, _ := os.Stdout.Stat()
	errf, _ := os.Stderr.Stat()
	if outf != nil && errf != nil && os.SameFile(outf, errf) {
		w = os.Stderr
	} else {
		w = io.MultiWriter(os.Stdout, os.Stderr)
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".restake")
	}
	return ""
}

// initLogger installs the root handler and returns the level it follows.
func initLogger(ctx *cli.Context) *slog.LevelVar {
	var level slog.LevelVar
	level.Set(log.FromVerbosity(ctx.GlobalInt(verbosityFlag.Name)))

	format := log.FormatTerminal
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		format = log.FormatJSON
	}
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewLogger(log.NewLeveledHandler(os.Stderr, format, &level, useColor)))
	return &level
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	network := ctx.GlobalString(networkFlag.Name)
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		network = path
	}
	switch network {
	case "", "dev":
		return genesis.NewDevnet()
	default:
		gen, err := genesis.Load(network)
		if err != nil {
			return nil, err
		}
		return genesis.NewCustomNet(gen)
	}
}

// applyConfig sets the clock parameters of gene, with the command line override,
// and locks them.
func applyConfig(ctx *cli.Context, gene *genesis.Genesis) {
	cfg := gene.Config()
	if n := ctx.GlobalUint64(epochLengthFlag.Name); n > 0 {
		cfg.EpochLength = n
	}
	thor.SetConfig(cfg)
	thor.LockConfig()
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.GlobalString(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func openMainDB(ctx *cli.Context, dir string) (*lvldb.LevelDB, int, error) {
	cacheMB := normalizeCacheSize(ctx.GlobalInt(cacheFlag.Name))
	log.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	log.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	path := filepath.Join(dir, "main.db")
	db, err := lvldb.New(path, lvldb.Options{
		CacheSize:              cacheMB / 2,
		OpenFilesCacheCapacity: 512,
	})
	if err != nil {
		return nil, 0, errors.Wrapf(err, "open main database [%v]", path)
	}
	return db, cacheMB / 2, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func openLogDB(dir string) (*logdb.LogDB, error) {
	path := filepath.Join(dir, "logs.db")
	db, err := logdb.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open log database [%v]", path)
	}
	return db, nil
}

func checkClockOffset() {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		log.Debug("failed to access NTP", "err", err)
		return
	}
	if resp.ClockOffset > time.Duration(thor.BlockInterval())*time.Second/2 {
		log.Warn("clock offset detected", "offset", resp.ClockOffset.String())
	}
}

// ledger bundles what every command opens.
type ledger struct {
	gene    *genesis.Genesis
	dir     string
	mainDB  *lvldb.LevelDB
	logDB   *logdb.LogDB
	clock   runtime.Clock
	remote  *remote.Simulator
	runtime *runtime.Runtime
}

// openLedger opens the instance of the selected genesis, building it on first use.
// withJournal opens the log database too.
func openLedger(ctx *cli.Context, withJournal bool) (*ledger, error) {
	gene, err := selectGenesis(ctx)
	if err != nil {
		return nil, err
	}
	applyConfig(ctx, gene)

	dir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return nil, err
	}
	mainDB, cacheMB, err := openMainDB(ctx, dir)
	if err != nil {
		return nil, err
	}
	l := &ledger{
		gene:   gene,
		dir:    dir,
		mainDB: mainDB,
		clock:  runtime.NewWallClock(gene.Timestamp()),
		remote: remote.NewSimulator(),
	}
	opts := runtime.Options{
		Budget: ctx.GlobalUint64(budgetFlag.Name),
		Remote: l.remote,
	}
	if withJournal {
		if l.logDB, err = openLogDB(dir); err != nil {
			l.Close()
			return nil, err
		}
		opts.Journal = runtime.NewLogJournal(l.logDB)
	}
	if l.runtime, err = runtime.New(state.New(mainDB, cacheMB/4), l.clock, opts); err != nil {
		l.Close()
		return nil, err
	}
	l.remote.OnResult = l.runtime.OnResult
	l.remote.OnReward = l.runtime.OnReward
	gene.ConfigureSimulator(l.remote)

	built, err := gene.Init(context.Background(), mainDB, l.runtime)
	if err != nil {
		l.Close()
		return nil, err
	}
	if built {
		log.Info("genesis built", "id", gene.ID(), "name", gene.Name())
	}
	return l, nil
}

func (l *ledger) Close() {
	if l.runtime != nil {
		l.runtime.Close()
	}
	if l.logDB != nil {
		if err := l.logDB.Close(); err != nil {
			log.Warn("failed to close log db", "err", err)
		}
	}
	if err := l.mainDB.Close(); err != nil {
		log.Warn("failed to close main db", "err", err)
	}
}
