// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

// sweepResult sums up a claim sweep driven to completion.
type sweepResult struct {
	Rounds   int
	Notified int
}

// sweepClaim invokes claimRewards until the sweep completes, draining the
// remote calls queued by every round. notified is called with the number of
// contracts asked for rewards in each round.
func sweepClaim(
	ctx context.Context,
	rt *runtime.Runtime,
	drain func(context.Context) (int, error),
	contract, caller thor.Address,
	maxRounds int,
	notified func(n int),
) (*sweepResult, error) {
	var res sweepResult
	for res.Rounds < maxRounds {
		var completion claim.Completion
		receipt, err := rt.Invoke(ctx, runtime.Invocation{Action: "claimRewards", Caller: caller}, func(env *xenv.Environment) (err error) {
			completion, err = liquidstaking.New(contract, env).ClaimRewards()
			return err
		})
		if err != nil {
			return &res, err
		}
		if receipt.Reverted {
			return &res, errors.Wrapf(receipt.Err(), "round %d", res.Rounds)
		}
		res.Rounds++

		n := 0
		for _, call := range receipt.Outbox.Calls {
			if call.Kind == xenv.CallClaimRewards {
				n++
			}
		}
		res.Notified += n
		if notified != nil {
			notified(n)
		}
		if _, err := drain(ctx); err != nil {
			return &res, err
		}
		if completion == claim.Completed {
			return &res, nil
		}
		log.Debug("claim sweep interrupted", "round", res.Rounds, "notified", n)
	}
	return &res, fmt.Errorf("claim not completed after %d rounds", maxRounds)
}

func sweepAction(ctx *cli.Context) error {
	initLogger(ctx)

	l, err := openLedger(ctx, true)
	if err != nil {
		return err
	}
	defer l.Close()

	contract := l.gene.Contracts().LiquidStaking
	var (
		caller  thor.Address
		entries int
	)
	if err := l.runtime.View(func(env *xenv.Environment) error {
		ls := liquidstaking.New(contract, env)
		owner, err := ls.Owner()
		if err != nil {
			return err
		}
		caller = owner
		dir, err := ls.Directory()
		entries = len(dir)
		return err
	}); err != nil {
		return err
	}
	if s := ctx.String(callerFlag.Name); s != "" {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return errors.WithMessage(err, callerFlag.Name)
		}
		caller = *addr
	}

	bar := pb.New(entries).SetMaxWidth(90).Start()
	defer func() { bar.NotPrint = true }()

	res, err := sweepClaim(context.Background(), l.runtime, l.remote.Drain, contract, caller, ctx.Int(maxRoundsFlag.Name), func(n int) {
		bar.Add(n)
	})
	if err != nil {
		return err
	}
	bar.Finish()
	log.Info("claim sweep completed", "rounds", res.Rounds, "notified", res.Notified, "epoch", l.clock.Epoch())
	return nil
}
