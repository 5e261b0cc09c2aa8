// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var contract = thor.BytesToAddress([]byte("liquid-staking"))

// chain runs invocations of the ledger against simulated delegation contracts.
// Effects of an invocation are kept only when it succeeds.
type chain struct {
	t      *testing.T
	st     *state.State
	owner  thor.Address
	epoch  uint64
	block  uint64 // offset within the epoch
	budget uint64
	sim    *remote.Simulator

	transfers []xenv.Transfer
}

func newChain(t *testing.T) *chain {
	c := &chain{
		t:      t,
		st:     state.New(lvldb.NewMem(), 0),
		owner:  datagen.RandAddress(),
		epoch:  1,
		budget: thor.DefaultInvocationBudget,
		sim:    remote.NewSimulator(),
	}
	c.sim.OnResult = func(_ context.Context, _, target thor.Address, res remote.Result) error {
		return c.invoke(target, nil, func(ls *LiquidStaking) error { return ls.OnResult(res) })
	}
	c.sim.OnReward = func(_ context.Context, _, target thor.Address, amount *big.Int) error {
		return c.invoke(target, []balance.Payment{balance.Base(amount)}, func(ls *LiquidStaking) error {
			return ls.ReceiveRewards()
		})
	}
	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.Init(c.owner) }))
	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.SetActive(true) }))
	return c
}

func (c *chain) invoke(caller thor.Address, payIn []balance.Payment, fn func(ls *LiquidStaking) error) error {
	checkpoint := c.st.NewCheckpoint()
	env := xenv.New(
		c.st,
		xenv.BlockContext{Number: c.epoch*thor.EpochLength() + c.block, Epoch: c.epoch},
		caller,
		payIn,
		gascharger.New(c.budget),
	)
	if err := fn(New(contract, env)); err != nil {
		c.st.RevertTo(checkpoint)
		return err
	}
	c.transfers = append(c.transfers, env.Outbox().Transfers...)
	for _, call := range env.Outbox().Calls {
		if err := c.sim.Send(context.Background(), call); err != nil {
			return err
		}
	}
	return nil
}

// view runs fn as a read-only invocation.
func (c *chain) view(fn func(ls *LiquidStaking)) {
	require.NoError(c.t, c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
		fn(ls)
		return nil
	}))
}

// drain delivers every queued remote call and its result.
func (c *chain) drain() {
	_, err := c.sim.Drain(context.Background())
	require.NoError(c.t, err)
}

// received sums what to was paid of asset.
func (c *chain) received(to thor.Address, asset balance.AssetKey) *big.Int {
	total := new(big.Int)
	for _, tr := range c.transfers {
		if tr.To != to {
			continue
		}
		for _, p := range tr.Payments {
			if p.Asset == asset {
				total.Add(total, p.Amount)
			}
		}
	}
	return total
}

func (c *chain) whitelist(target thor.Address, limit *big.Int, yield uint64) {
	require.NoError(c.t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error {
		return ls.WhitelistContract(target, datagen.RandAddress(), new(big.Int), limit, 1, yield)
	}))
}

func (c *chain) addLiquidity(user thor.Address, amount *big.Int) error {
	return c.invoke(user, []balance.Payment{balance.Base(amount)}, func(ls *LiquidStaking) error {
		_, err := ls.AddLiquidity()
		return err
	})
}

func (c *chain) removeLiquidity(user thor.Address, shares *big.Int) error {
	return c.invoke(user, []balance.Payment{lsShares(shares)}, func(ls *LiquidStaking) error {
		_, err := ls.RemoveLiquidity()
		return err
	})
}

func (c *chain) unbond(user thor.Address, position uint64) (handle remote.Handle, err error) {
	err = c.invoke(user, []balance.Payment{balance.NewPayment(PositionAsset(position), big.NewInt(1))}, func(ls *LiquidStaking) error {
		handle, err = ls.UnbondTokens()
		return err
	})
	return handle, err
}

func (c *chain) claim() (completion string, err error) {
	err = c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
		res, err := ls.ClaimRewards()
		completion = res.String()
		return err
	})
	return completion, err
}

func (c *chain) entry(target thor.Address) (e Contract) {
	c.view(func(ls *LiquidStaking) {
		contracts, err := ls.Directory()
		require.NoError(c.t, err)
		for _, ct := range contracts {
			if ct.Address == target {
				e = ct
				return
			}
		}
		c.t.Fatalf("contract %v not whitelisted", target)
	})
	return e
}

func (c *chain) poolInfo() (info *PoolInfo) {
	c.view(func(ls *LiquidStaking) {
		var err error
		info, err = ls.Pool()
		require.NoError(c.t, err)
	})
	return info
}

// units returns n whole base units.
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), thor.MinDelegable)
}

func lsShares(v *big.Int) balance.Payment {
	return balance.NewPayment(balance.Token(LsToken), v)
}

func assertBig(t *testing.T, want, got *big.Int, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want.String(), got.String(), msgAndArgs...)
}

func expect(t *testing.T, err error, kind reverts.Kind, step string) {
	t.Helper()
	require.Error(t, err, step)
	assert.Equal(t, kind, reverts.KindOf(err), "%s: %v", step, err)
}
