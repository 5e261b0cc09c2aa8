// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var lsAddr = thor.BytesToAddress([]byte("liquid-staking"))

type testNode struct {
	t       *testing.T
	rt      *runtime.Runtime
	clock   *runtime.ManualClock
	sim     *remote.Simulator
	payouts *runtime.Payouts
	db      *logdb.LogDB
	owner   thor.Address
	target  thor.Address
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestNode(t *testing.T) *testNode {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := &testNode{
		t:       t,
		clock:   runtime.NewManualClock(uint64(time.Now().Unix()), 10),
		sim:     remote.NewSimulator(),
		payouts: runtime.NewPayouts(),
		db:      db,
		owner:   datagen.RandAddress(),
		target:  datagen.RandAddress(),
	}
	n.rt, err = runtime.New(state.New(lvldb.NewMem(), 0), n.clock, runtime.Options{
		Transfers: n.payouts,
		Remote:    n.sim,
		Journal:   runtime.NewLogJournal(db),
	})
	require.NoError(t, err)
	t.Cleanup(n.rt.Close)
	n.sim.OnResult = n.rt.OnResult
	n.sim.OnReward = n.rt.OnReward

	n.mustInvoke(n.owner, nil, func(ls *liquidstaking.LiquidStaking) error { return ls.Init(n.owner) })
	n.mustInvoke(n.owner, nil, func(ls *liquidstaking.LiquidStaking) error { return ls.SetActive(true) })
	n.mustInvoke(n.owner, nil, func(ls *liquidstaking.LiquidStaking) error {
		return ls.WhitelistContract(n.target, n.owner, new(big.Int), units(1000), 1, 5)
	})
	return n
}

func (n *testNode) invoke(caller thor.Address, payIn []balance.Payment, fn func(ls *liquidstaking.LiquidStaking) error) *runtime.Receipt {
	receipt, err := n.rt.Invoke(context.Background(), runtime.Invocation{Action: "test", Caller: caller, Payments: payIn}, func(env *xenv.Environment) error {
		return fn(liquidstaking.New(lsAddr, env))
	})
	require.NoError(n.t, err)
	return receipt
}

func (n *testNode) mustInvoke(caller thor.Address, payIn []balance.Payment, fn func(ls *liquidstaking.LiquidStaking) error) *runtime.Receipt {
	receipt := n.invoke(caller, payIn, fn)
	require.False(n.t, receipt.Reverted, receipt.Error)
	return receipt
}

func (n *testNode) pool() (info *liquidstaking.PoolInfo) {
	require.NoError(n.t, n.rt.View(func(env *xenv.Environment) (err error) {
		info, err = liquidstaking.New(lsAddr, env).Pool()
		return err
	}))
	return info
}

func addLiquidity(ls *liquidstaking.LiquidStaking) error {
	_, err := ls.AddLiquidity()
	return err
}

func TestInvokeEndToEnd(t *testing.T) {
	n := newTestNode(t)
	user := datagen.RandAddress()

	receipt := n.mustInvoke(user, []balance.Payment{balance.Base(units(10))}, addLiquidity)
	require.Len(t, receipt.Outbox.Calls, 1)
	assert.Equal(t, xenv.CallStake, receipt.Outbox.Calls[0].Kind)
	assert.NotZero(t, receipt.GasUsed)

	// nothing is paid before the result comes back
	assert.Equal(t, "0", n.payouts.Received(user, balance.Token(liquidstaking.LsToken)).String())

	processed, err := n.sim.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	assert.Equal(t, units(10).String(), n.payouts.Received(user, balance.Token(liquidstaking.LsToken)).String())
	assert.Equal(t, units(10).String(), n.sim.Staked(n.target).String())
	assert.Equal(t, units(10).String(), n.pool().LsSupply.String())

	transfers, err := n.db.FilterTransfers(context.Background(), &logdb.TransferFilter{
		CriteriaSet: []*logdb.TransferCriteria{{Recipient: &user}},
	})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, lsAddr, transfers[0].Sender)

	name := "AddLiquidity"
	events, err := n.db.FilterEvents(context.Background(), &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{{Contract: &lsAddr, Name: name}},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, user, events[0].Subject)
}

func TestRevertedInvocation(t *testing.T) {
	n := newTestNode(t)
	user := datagen.RandAddress()

	receipt := n.invoke(user, []balance.Payment{balance.Base(big.NewInt(1))}, addLiquidity)
	assert.True(t, receipt.Reverted)
	assert.Equal(t, reverts.InvalidArgument, receipt.Kind)
	assert.True(t, reverts.Is(receipt.Err(), reverts.InvalidArgument))
	assert.True(t, receipt.Outbox.IsEmpty())
	assert.Empty(t, n.sim.History())

	// state written before the failure is dropped
	receipt = n.invoke(n.owner, nil, func(ls *liquidstaking.LiquidStaking) error {
		if err := ls.SetActive(false); err != nil {
			return err
		}
		return reverts.New(reverts.PreconditionFailed, "abort")
	})
	assert.True(t, receipt.Reverted)
	require.NoError(t, n.rt.View(func(env *xenv.Environment) error {
		active, err := liquidstaking.New(lsAddr, env).IsActive()
		assert.True(t, active)
		return err
	}))

	cached, ok := n.rt.Receipt(receipt.ID)
	require.True(t, ok)
	assert.Equal(t, receipt, cached)
}

func TestBudget(t *testing.T) {
	n := newTestNode(t)
	receipt, err := n.rt.Invoke(context.Background(), runtime.Invocation{Action: "setActive", Caller: n.owner, Budget: 1}, func(env *xenv.Environment) error {
		return liquidstaking.New(lsAddr, env).SetActive(false)
	})
	require.NoError(t, err)
	assert.True(t, receipt.Reverted)
	assert.Equal(t, reverts.InsufficientComputeBudget, receipt.Kind)
	assert.Equal(t, uint64(1), receipt.GasUsed)
}

func TestSubscribeReceipts(t *testing.T) {
	n := newTestNode(t)
	ch := make(chan *runtime.Receipt, 4)
	sub := n.rt.SubscribeReceipts(ch)
	defer sub.Unsubscribe()

	receipt := n.mustInvoke(datagen.RandAddress(), []balance.Payment{balance.Base(units(2))}, addLiquidity)
	select {
	case got := <-ch:
		assert.Equal(t, receipt.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no receipt delivered")
	}

	// reverted invocations are not published
	n.invoke(datagen.RandAddress(), nil, addLiquidity)
	select {
	case got := <-ch:
		t.Fatalf("unexpected receipt %v", got.ID)
	default:
	}
}

func TestOnResultUnknownHandle(t *testing.T) {
	n := newTestNode(t)
	err := n.rt.OnResult(context.Background(), lsAddr, n.target, remote.Result{Handle: 42, OK: true, Amount: new(big.Int)})
	assert.True(t, reverts.Is(err, reverts.UnknownTarget))
}

func TestRewardsFromUnknownContract(t *testing.T) {
	n := newTestNode(t)
	err := n.rt.OnReward(context.Background(), lsAddr, datagen.RandAddress(), units(1))
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	require.NoError(t, n.rt.OnReward(context.Background(), lsAddr, n.target, units(1)))
	assert.Equal(t, units(1).String(), n.pool().Balance.String())
}

func TestCanceledInvoke(t *testing.T) {
	n := newTestNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.rt.Invoke(ctx, runtime.Invocation{Action: "noop"}, func(*xenv.Environment) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManualClock(t *testing.T) {
	c := runtime.NewManualClock(1000, 10)
	assert.Equal(t, uint64(0), c.Epoch())
	c.Advance(25)
	assert.Equal(t, uint64(25), c.Block())
	assert.Equal(t, uint64(2), c.Epoch())
	assert.Equal(t, 1000+25*thor.BlockInterval(), c.Time())

	c.AdvanceEpochs(1)
	assert.Equal(t, uint64(30), c.Block())
	assert.Equal(t, uint64(3), c.Epoch())
}

func TestWallClock(t *testing.T) {
	now := uint64(time.Now().Unix())
	c := runtime.NewWallClock(now + 3600)
	assert.Equal(t, uint64(0), c.Block())

	c = runtime.NewWallClock(now - 10*thor.BlockInterval())
	assert.True(t, c.Block() >= 10)
}
