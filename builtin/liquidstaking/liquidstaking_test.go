// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

func TestAddRemoveUnbond(t *testing.T) {
	c := newChain(t)
	target := datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(target, units(100), 10)

	require.NoError(t, c.addLiquidity(user, units(10)))
	assertBig(t, new(big.Int), c.received(user, balance.Token(LsToken)), "shares minted before the stake is confirmed")
	assertBig(t, new(big.Int), c.poolInfo().LsSupply)

	c.drain()
	assertBig(t, units(10), c.received(user, balance.Token(LsToken)))
	assertBig(t, units(10), c.sim.Staked(target))
	assertBig(t, units(10), c.entry(target).StakedFromLedger)

	require.NoError(t, c.removeLiquidity(user, units(4)))
	c.drain()
	require.NoError(t, c.removeLiquidity(user, units(2)))
	c.drain()
	assertBig(t, big.NewInt(1), c.received(user, PositionAsset(1)))
	assertBig(t, big.NewInt(1), c.received(user, PositionAsset(2)))

	c.view(func(ls *LiquidStaking) {
		pos, err := ls.Position(1)
		require.NoError(t, err)
		assert.Equal(t, target, pos.Contract)
		assert.Equal(t, uint64(1), pos.UnstakeEpoch)
		assert.Equal(t, 1+thor.UnbondPeriod, pos.UnbondEpoch)
		assertBig(t, units(4), pos.Amount)
	})
	info := c.poolInfo()
	assertBig(t, units(4), info.LsSupply)
	assertBig(t, units(4), info.VirtualReserve)
	assertBig(t, units(6), info.UnstakeSupply)
	e := c.entry(target)
	assertBig(t, units(4), e.StakedFromLedger)
	assertBig(t, units(6), e.UnstakedFromLedger)

	_, err := c.unbond(user, 1)
	expect(t, err, reverts.PreconditionFailed, "unbond before maturity")

	c.epoch += thor.UnbondPeriod
	handle, err := c.unbond(user, 1)
	require.NoError(t, err)
	assert.NotZero(t, handle, "nothing withdrawn yet")
	c.drain()
	assertBig(t, units(4), c.received(user, balance.BaseAsset))

	// the first withdrawal brought back both positions
	handle, err = c.unbond(user, 2)
	require.NoError(t, err)
	assert.Zero(t, handle, "settled without a withdrawal")
	assertBig(t, units(6), c.received(user, balance.BaseAsset))

	info = c.poolInfo()
	assertBig(t, new(big.Int), info.UnstakeSupply)
	assertBig(t, new(big.Int), info.TotalWithdrawn)
	assertBig(t, new(big.Int), info.Balance)
	e = c.entry(target)
	assertBig(t, new(big.Int), e.UnstakedFromLedger)
	assertBig(t, new(big.Int), e.UnbondedFromLedger)

	c.view(func(ls *LiquidStaking) {
		_, err := ls.Position(1)
		assert.True(t, reverts.Is(err, reverts.UnknownTarget))
	})
	_, err = c.unbond(user, 2)
	expect(t, err, reverts.UnknownTarget, "unbond twice")
}

func TestAddLiquidityFailure(t *testing.T) {
	c := newChain(t)
	good, bad := datagen.RandAddress(), datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(good, units(100), 10)
	c.whitelist(bad, units(100), 20)
	c.sim.SetFailing(bad, true)

	require.NoError(t, c.addLiquidity(user, units(5)))
	c.drain()
	assertBig(t, units(5), c.received(user, balance.BaseAsset), "refunded")
	assertBig(t, new(big.Int), c.received(user, balance.Token(LsToken)))

	c.view(func(ls *LiquidStaking) {
		contracts, err := ls.Directory()
		require.NoError(t, err)
		require.Len(t, contracts, 2)
		assert.Equal(t, good, contracts[0].Address)
		assert.Equal(t, bad, contracts[1].Address, "failing contract demoted")
	})

	require.NoError(t, c.addLiquidity(user, units(5)))
	c.drain()
	assertBig(t, units(5), c.received(user, balance.Token(LsToken)))
	assertBig(t, units(5), c.sim.Staked(good))
}

func TestRemoveLiquidityFailure(t *testing.T) {
	c := newChain(t)
	target := datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(target, units(100), 10)
	require.NoError(t, c.addLiquidity(user, units(3)))
	c.drain()

	c.sim.SetFailing(target, true)
	require.NoError(t, c.removeLiquidity(user, units(3)))
	c.drain()
	assertBig(t, units(6), c.received(user, balance.Token(LsToken)), "shares returned")
	assertBig(t, units(3), c.poolInfo().LsSupply)
	assertBig(t, units(3), c.entry(target).StakedFromLedger)

	err := c.removeLiquidity(user, units(4))
	expect(t, err, reverts.InsufficientBalance, "more shares than supply")
}

func TestAddLiquidityErrors(t *testing.T) {
	c := newChain(t)
	user := datagen.RandAddress()

	expect(t, c.addLiquidity(user, units(1)), reverts.NoEligibleTarget, "empty directory")

	c.whitelist(datagen.RandAddress(), units(10), 10)
	expect(t, c.addLiquidity(user, big.NewInt(1)), reverts.InvalidArgument, "below minimum")
	expect(t, c.addLiquidity(user, units(11)), reverts.NoEligibleTarget, "above capacity")

	err := c.invoke(user, []balance.Payment{lsShares(units(1))}, func(ls *LiquidStaking) error {
		_, err := ls.AddLiquidity()
		return err
	})
	expect(t, err, reverts.InvalidArgument, "not base asset")

	err = c.invoke(user, []balance.Payment{balance.Base(units(1)), balance.Base(units(1))}, func(ls *LiquidStaking) error {
		_, err := ls.AddLiquidity()
		return err
	})
	expect(t, err, reverts.InvalidArgument, "two payments")

	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.SetActive(false) }))
	expect(t, c.addLiquidity(user, units(1)), reverts.PreconditionFailed, "inactive")
	assert.Empty(t, c.sim.History())
}

func TestOnResultAuthorization(t *testing.T) {
	c := newChain(t)
	target := datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(target, units(100), 10)
	require.NoError(t, c.addLiquidity(user, units(1)))

	onResult := func(caller thor.Address, handle remote.Handle) error {
		return c.invoke(caller, nil, func(ls *LiquidStaking) error {
			return ls.OnResult(remote.Result{Handle: handle, OK: true})
		})
	}
	expect(t, onResult(datagen.RandAddress(), 1), reverts.Unauthorized, "result from a stranger")
	expect(t, onResult(target, 99), reverts.UnknownTarget, "unknown handle")
	require.NoError(t, onResult(target, 1))
	expect(t, onResult(target, 1), reverts.UnknownTarget, "result applied twice")
	assertBig(t, units(1), c.received(user, balance.Token(LsToken)))
}

func TestClaimResumable(t *testing.T) {
	c := newChain(t)
	targets := []thor.Address{datagen.RandAddress(), datagen.RandAddress(), datagen.RandAddress()}
	for i, target := range targets {
		c.whitelist(target, units(100), uint64(30-i))
	}

	// claims open in the epoch after Init, one step per invocation
	c.epoch++
	c.budget = 40_000_000
	completion, err := c.claim()
	require.NoError(t, err)
	assert.Equal(t, claim.Interrupted.String(), completion)
	c.view(func(ls *LiquidStaking) {
		op, err := ls.ClaimOperation()
		require.NoError(t, err)
		assert.Equal(t, claim.Pending, op.Phase)
	})

	completion, err = c.claim()
	require.NoError(t, err)
	assert.Equal(t, claim.Interrupted.String(), completion)
	completion, err = c.claim()
	require.NoError(t, err)
	assert.Equal(t, claim.Completed.String(), completion)

	var claimed []thor.Address
	for _, call := range c.sim.History() {
		if call.Kind == xenv.CallClaimRewards {
			claimed = append(claimed, call.Target)
		}
	}
	assert.Equal(t, targets, claimed, "every contract claimed once, in directory order")

	c.view(func(ls *LiquidStaking) {
		s, err := ls.ClaimStatus()
		require.NoError(t, err)
		assert.Equal(t, claim.Finished, s.Phase)
		op, err := ls.ClaimOperation()
		require.NoError(t, err)
		assert.Equal(t, claim.None, op.Phase)
	})

	c.budget = thor.DefaultInvocationBudget
	_, err = c.claim()
	expect(t, err, reverts.PreconditionFailed, "claim before rewards are recomputed")
}

func TestClaimSurvivesDirectoryChanges(t *testing.T) {
	tests := []struct {
		name    string
		failing int // index of the contract demoted after the first step
		room    int64
	}{
		{"claimed contract demoted", 0, 100},
		{"contract under the cursor demoted", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChain(t)
			targets := []thor.Address{datagen.RandAddress(), datagen.RandAddress(), datagen.RandAddress()}
			c.whitelist(targets[0], units(tt.room), 30)
			c.whitelist(targets[1], units(100), 20)
			c.whitelist(targets[2], units(100), 10)

			c.epoch++
			c.budget = 40_000_000
			completion, err := c.claim()
			require.NoError(t, err)
			require.Equal(t, claim.Interrupted.String(), completion)

			// a failed stake demotes its target while the claim is pending
			c.budget = thor.DefaultInvocationBudget
			c.sim.SetFailing(targets[tt.failing], true)
			require.NoError(t, c.addLiquidity(datagen.RandAddress(), units(5)))
			c.drain()
			c.view(func(ls *LiquidStaking) {
				addrs, err := ls.directory.Addresses()
				require.NoError(t, err)
				assert.Equal(t, targets[tt.failing], addrs[len(addrs)-1])
				op, err := ls.ClaimOperation()
				require.NoError(t, err)
				assert.True(t, op.Rewind)
			})

			c.budget = 40_000_000
			for i := 0; completion != claim.Completed.String(); i++ {
				require.Less(t, i, 10, "claim never completed")
				completion, err = c.claim()
				require.NoError(t, err)
			}

			var claimed []thor.Address
			for _, call := range c.sim.History() {
				if call.Kind == xenv.CallClaimRewards {
					claimed = append(claimed, call.Target)
				}
			}
			assert.ElementsMatch(t, targets, claimed, "every contract claimed exactly once")
		})
	}
}

// claimAndRecompute runs a full claim paying reward from target and books it.
func claimAndRecompute(t *testing.T, c *chain, target thor.Address, reward *big.Int) {
	c.epoch++
	c.sim.SetReward(target, reward)
	completion, err := c.claim()
	require.NoError(t, err)
	require.Equal(t, claim.Completed.String(), completion)
	c.drain()

	err = c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
		_, err := ls.RecomputeTokenReserve()
		return err
	})
	expect(t, err, reverts.PreconditionFailed, "recompute in the claim block")

	c.block += claim.RecomputeBlockOffset.Default()
	require.NoError(t, c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
		added, err := ls.RecomputeTokenReserve()
		assertBig(t, reward, added)
		return err
	}))
}

func TestRewardsRaiseShareValue(t *testing.T) {
	c := newChain(t)
	target := datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(target, units(100), 10)
	require.NoError(t, c.addLiquidity(user, units(10)))
	c.drain()

	claimAndRecompute(t, c, target, units(2))
	c.view(func(ls *LiquidStaking) {
		s, err := ls.ClaimStatus()
		require.NoError(t, err)
		assert.Equal(t, claim.Delegable, s.Phase)
	})
	info := c.poolInfo()
	assertBig(t, units(2), info.RewardsReserve)
	assertBig(t, units(2), info.Balance)

	require.NoError(t, c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
		_, err := ls.DelegateRewards()
		return err
	}))
	c.drain()

	info = c.poolInfo()
	assertBig(t, new(big.Int), info.RewardsReserve)
	assertBig(t, new(big.Int), info.Balance)
	assertBig(t, units(12), info.VirtualReserve)
	assertBig(t, units(10), info.LsSupply)
	assertBig(t, units(12), c.sim.Staked(target))
	c.view(func(ls *LiquidStaking) {
		s, err := ls.ClaimStatus()
		require.NoError(t, err)
		assert.Equal(t, claim.Redelegated, s.Phase)
		value, err := ls.LsValueForShares(units(5))
		require.NoError(t, err)
		assertBig(t, units(6), value)
	})

	// new liquidity buys shares at the raised rate
	other := datagen.RandAddress()
	require.NoError(t, c.addLiquidity(other, units(6)))
	c.drain()
	assertBig(t, units(5), c.received(other, balance.Token(LsToken)))

	_, err := c.claim()
	expect(t, err, reverts.PreconditionFailed, "claim twice in one epoch")
	c.epoch++
	_, err = c.claim()
	require.NoError(t, err)
}

func TestDelegateRewardsFailure(t *testing.T) {
	c := newChain(t)
	first, second := datagen.RandAddress(), datagen.RandAddress()
	user := datagen.RandAddress()
	c.whitelist(first, units(100), 20)
	c.whitelist(second, units(100), 10)
	require.NoError(t, c.addLiquidity(user, units(10)))
	c.drain()

	claimAndRecompute(t, c, first, units(3))
	delegate := func() error {
		return c.invoke(datagen.RandAddress(), nil, func(ls *LiquidStaking) error {
			_, err := ls.DelegateRewards()
			return err
		})
	}

	c.sim.SetFailing(first, true)
	require.NoError(t, delegate())
	c.drain()
	info := c.poolInfo()
	assertBig(t, units(3), info.RewardsReserve, "reserve restored")
	assertBig(t, units(3), info.Balance)
	assertBig(t, units(10), info.VirtualReserve)

	// the demoted contract went to the tail
	require.NoError(t, delegate())
	assert.Equal(t, second, c.sim.History()[len(c.sim.History())-1].Target)
	c.drain()
	assertBig(t, units(3), c.sim.Staked(second))
	assertBig(t, units(13), c.poolInfo().VirtualReserve)
	expect(t, delegate(), reverts.PreconditionFailed, "nothing left to delegate")
}

func TestReceiveRewards(t *testing.T) {
	c := newChain(t)
	target := datagen.RandAddress()
	c.whitelist(target, units(100), 10)

	receive := func(caller thor.Address, p balance.Payment) error {
		return c.invoke(caller, []balance.Payment{p}, func(ls *LiquidStaking) error { return ls.ReceiveRewards() })
	}
	expect(t, receive(datagen.RandAddress(), balance.Base(units(1))), reverts.Unauthorized, "stranger")
	expect(t, receive(target, lsShares(units(1))), reverts.InvalidArgument, "not base asset")
	require.NoError(t, receive(target, balance.Base(units(1))))
	assertBig(t, units(1), c.poolInfo().Balance)
}

func TestAdministration(t *testing.T) {
	c := newChain(t)
	stranger := datagen.RandAddress()
	a, b := datagen.RandAddress(), datagen.RandAddress()
	admin := datagen.RandAddress()

	expect(t, c.invoke(stranger, nil, func(ls *LiquidStaking) error { return ls.SetActive(false) }), reverts.Unauthorized, "set active")
	expect(t, c.invoke(stranger, nil, func(ls *LiquidStaking) error {
		return ls.WhitelistContract(a, admin, new(big.Int), units(10), 1, 5)
	}), reverts.Unauthorized, "whitelist")
	expect(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.Init(stranger) }), reverts.PreconditionFailed, "init twice")

	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error {
		return ls.WhitelistContract(a, admin, new(big.Int), units(10), 1, 5)
	}))
	expect(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error {
		return ls.WhitelistContract(a, admin, new(big.Int), units(10), 1, 5)
	}), reverts.AlreadyWhitelisted, "whitelist twice")
	c.whitelist(b, units(10), 7)

	changeParams := func(caller thor.Address, yield uint64) error {
		return c.invoke(caller, nil, func(ls *LiquidStaking) error {
			return ls.ChangeParams(a, units(1), units(20), 2, yield)
		})
	}
	expect(t, changeParams(stranger, 9), reverts.PreconditionFailed, "change params as stranger")
	require.NoError(t, changeParams(admin, 9))
	e := c.entry(a)
	assert.Equal(t, uint64(9), e.Yield)
	assertBig(t, units(20), e.Cap)

	c.view(func(ls *LiquidStaking) {
		contracts, err := ls.Directory()
		require.NoError(t, err)
		assert.Equal(t, a, contracts[0].Address, "reordered by yield")
	})

	newAdmin := datagen.RandAddress()
	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.ChangeAdmin(a, newAdmin) }))
	expect(t, changeParams(admin, 3), reverts.PreconditionFailed, "old admin")
	require.NoError(t, changeParams(newAdmin, 3))

	require.NoError(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error { return ls.SetMaxContracts(1) }))
	expect(t, c.invoke(c.owner, nil, func(ls *LiquidStaking) error {
		return ls.WhitelistContract(datagen.RandAddress(), admin, new(big.Int), units(10), 1, 5)
	}), reverts.DirectoryFull, "directory full")
}

func TestPoolShares(t *testing.T) {
	c := newChain(t)
	c.view(func(ls *LiquidStaking) {
		shares, err := ls.pool.add(big.NewInt(100))
		require.NoError(t, err)
		assertBig(t, big.NewInt(100), shares, "1:1 on an empty pool")

		require.NoError(t, ls.pool.grow(big.NewInt(50)))
		shares, err = ls.pool.add(big.NewInt(30))
		require.NoError(t, err)
		assertBig(t, big.NewInt(20), shares)

		value, err := ls.pool.valueOf(big.NewInt(20))
		require.NoError(t, err)
		assertBig(t, big.NewInt(30), value)

		_, err = ls.pool.valueOf(big.NewInt(121))
		assert.True(t, reverts.Is(err, reverts.InsufficientBalance))

		require.NoError(t, ls.pool.remove(big.NewInt(20), big.NewInt(30)))
		err = ls.pool.remove(big.NewInt(101), big.NewInt(1))
		assert.True(t, reverts.Is(err, reverts.PreconditionFailed))

		_, err = ls.pool.add(big.NewInt(1))
		assert.True(t, reverts.Is(err, reverts.ZeroAmount), "too small for a share")
	})

	_, err := mulDiv(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1), big.NewInt(1))
	assert.True(t, reverts.Is(err, reverts.InvalidArgument))
	_, err = mulDiv(big.NewInt(1), big.NewInt(1), new(big.Int))
	assert.True(t, reverts.Is(err, reverts.PreconditionFailed))
}
