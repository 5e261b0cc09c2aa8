// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testnode wires an in-memory runtime for package tests.
package testnode

import (
	"time"

	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
)

var (
	LedgerAddr        = thor.BytesToAddress([]byte("restaking"))
	LiquidStakingAddr = thor.BytesToAddress([]byte("liquid-staking"))
)

// Node bundles the runtime with its endpoints.
type Node struct {
	Runtime *runtime.Runtime
	Clock   *runtime.ManualClock
	Remote  *remote.Simulator
	Payouts *runtime.Payouts
	LogDB   *logdb.LogDB
}

// New creates a node with ten block epochs. Close it when done.
func New() (*Node, error) {
	db, err := logdb.NewMem()
	if err != nil {
		return nil, err
	}
	n := &Node{
		Clock:   runtime.NewManualClock(uint64(time.Now().Unix()), 10),
		Remote:  remote.NewSimulator(),
		Payouts: runtime.NewPayouts(),
		LogDB:   db,
	}
	n.Runtime, err = runtime.New(state.New(lvldb.NewMem(), 0), n.Clock, runtime.Options{
		Transfers: n.Payouts,
		Remote:    n.Remote,
		Journal:   runtime.NewLogJournal(db),
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	n.Remote.OnResult = n.Runtime.OnResult
	n.Remote.OnReward = n.Runtime.OnReward
	return n, nil
}

func (n *Node) Close() {
	n.Runtime.Close()
	n.LogDB.Close()
}
