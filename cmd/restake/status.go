// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

type ledgerStatus struct {
	Genesis   thor.Bytes32 `json:"genesis"`
	Network   string       `json:"network"`
	Block     uint64       `json:"block"`
	Epoch     uint64       `json:"epoch"`
	Restaking struct {
		Address      thor.Address `json:"address"`
		Owner        thor.Address `json:"owner"`
		Tokens       []string     `json:"tokens"`
		UnbondEpochs uint64       `json:"unbondEpochs"`
	} `json:"restaking"`
	LiquidStaking struct {
		Address        thor.Address          `json:"address"`
		Owner          thor.Address          `json:"owner"`
		Active         bool                  `json:"active"`
		Contracts      int                   `json:"contracts"`
		LsSupply       *math.HexOrDecimal256 `json:"lsSupply"`
		VirtualReserve *math.HexOrDecimal256 `json:"virtualReserve"`
		RewardsReserve *math.HexOrDecimal256 `json:"rewardsReserve"`
		ClaimPhase     claim.Phase           `json:"claimPhase"`
		LastClaimEpoch uint64                `json:"lastClaimEpoch"`
		Operation      claim.Phase           `json:"operation"`
	} `json:"liquidStaking"`
	PendingCalls int `json:"pendingCalls"`
}

func collectStatus(l *ledger) (*ledgerStatus, error) {
	var s ledgerStatus
	s.Genesis = l.gene.ID()
	s.Network = l.gene.Name()
	s.Block = l.clock.Block()
	s.Epoch = l.clock.Epoch()
	s.PendingCalls = l.remote.Pending()

	contracts := l.gene.Contracts()
	err := l.runtime.View(func(env *xenv.Environment) (err error) {
		r := restaking.New(contracts.Restaking, env)
		s.Restaking.Address = contracts.Restaking
		if s.Restaking.Owner, err = r.Owner(); err != nil {
			return err
		}
		if s.Restaking.Tokens, err = r.Tokens(); err != nil {
			return err
		}
		s.Restaking.UnbondEpochs = r.UnbondEpochs()

		ls := liquidstaking.New(contracts.LiquidStaking, env)
		s.LiquidStaking.Address = contracts.LiquidStaking
		if s.LiquidStaking.Owner, err = ls.Owner(); err != nil {
			return err
		}
		if s.LiquidStaking.Active, err = ls.IsActive(); err != nil {
			return err
		}
		dir, err := ls.Directory()
		if err != nil {
			return err
		}
		s.LiquidStaking.Contracts = len(dir)
		pool, err := ls.Pool()
		if err != nil {
			return err
		}
		s.LiquidStaking.LsSupply = (*math.HexOrDecimal256)(pool.LsSupply)
		s.LiquidStaking.VirtualReserve = (*math.HexOrDecimal256)(pool.VirtualReserve)
		s.LiquidStaking.RewardsReserve = (*math.HexOrDecimal256)(pool.RewardsReserve)
		status, err := ls.ClaimStatus()
		if err != nil {
			return err
		}
		s.LiquidStaking.ClaimPhase = status.Phase
		s.LiquidStaking.LastClaimEpoch = status.LastClaimEpoch
		op, err := ls.ClaimOperation()
		if err != nil {
			return err
		}
		s.LiquidStaking.Operation = op.Phase
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func printStatus(w io.Writer, s *ledgerStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func statusAction(ctx *cli.Context) error {
	initLogger(ctx)

	l, err := openLedger(ctx, true)
	if err != nil {
		return err
	}
	defer l.Close()

	s, err := collectStatus(l)
	if err != nil {
		return err
	}
	return printStatus(os.Stdout, s)
}
