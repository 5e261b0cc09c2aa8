// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/thor"
)

func TestDelegateRevokeUnbond(t *testing.T) {
	c := newChain(t)
	delegator, validator := datagen.RandAddress(), datagen.RandAddress()

	NewSequence(c).
		Deposit(delegator, base(100)).
		RegisterValidator(validator, "validator", 80).
		Delegate(delegator, validator, reverts.Unknown, base(60)).
		AssertTotal(validator, 60).
		Delegate(delegator, validator, reverts.CapExceeded, base(30)).
		AssertTotal(validator, 60).
		AssertBalance(delegator, base(40)).
		AddFunc(func(t *testing.T) {
			delegators, err := c.as(validator).Delegators(validator)
			require.NoError(t, err)
			assert.Equal(t, []thor.Address{delegator}, delegators)
		}).
		Revoke(delegator, validator, reverts.Unknown, base(60)).
		AssertTotal(validator, 0).
		AddFunc(func(t *testing.T) {
			delegators, err := c.as(validator).Delegators(validator)
			require.NoError(t, err)
			assert.Empty(t, delegators)

			buckets, err := c.as(delegator).UnbondBuckets(delegator)
			require.NoError(t, err)
			require.Len(t, buckets, 1)
			assert.Equal(t, c.epoch+thor.UnbondPeriod, buckets[0].MaturityEpoch)
			assert.Equal(t, big.NewInt(60), buckets[0].Assets.AmountOf(balance.BaseAsset))
		}).
		AdvanceEpochs(thor.UnbondPeriod - 1).
		AssertUnbondToLedger(delegator).
		AdvanceEpochs(1).
		AssertUnbondToLedger(delegator, base(60)).
		AssertUnbondToLedger(delegator).
		AssertBalance(delegator, base(100)).
		Run(t)
}

func TestRevokeErrors(t *testing.T) {
	c := newChain(t)
	delegator, validator := datagen.RandAddress(), datagen.RandAddress()

	NewSequence(c).
		Deposit(delegator, base(100)).
		RegisterValidator(validator, "validator", 0).
		Revoke(delegator, validator, reverts.NothingDelegated, base(1)).
		Delegate(delegator, validator, reverts.Unknown, base(50)).
		Revoke(delegator, validator, reverts.OverRevoke, base(51)).
		Revoke(delegator, validator, reverts.ZeroAmount, base(0)).
		Revoke(delegator, datagen.RandAddress(), reverts.UnknownAddress, base(1)).
		Delegate(delegator, validator, reverts.InsufficientBalance, base(51)).
		Delegate(delegator, validator, reverts.ZeroAmount, base(0)).
		AssertTotal(validator, 50).
		AssertBalance(delegator, base(50)).
		Run(t)
}

func TestTokens(t *testing.T) {
	c := newChain(t)
	user, validator := datagen.RandAddress(), datagen.RandAddress()

	err := c.as(user).AddToken("USDC", big.NewInt(2), 0)
	assert.True(t, reverts.Is(err, reverts.Unauthorized))
	require.NoError(t, c.as(c.owner).AddToken("USDC", big.NewInt(2), 0))
	assert.True(t, reverts.Is(c.as(c.owner).AddToken("USDC", big.NewInt(2), 0), reverts.AlreadyWhitelisted))

	list, err := c.as(user).Tokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"USDC"}, list)

	err = c.as(user, tokens("WBTC", 1)).Deposit()
	assert.True(t, reverts.Is(err, reverts.UnknownTarget))
	assert.True(t, reverts.Is(c.as(user).Deposit(), reverts.InvalidArgument), "no payment")

	NewSequence(c).
		Deposit(user, base(5), tokens("USDC", 10)).
		RegisterValidator(validator, "validator", 0).
		Delegate(user, validator, reverts.Unknown, tokens("USDC", 4)).
		AssertTotal(validator, 8).
		AddFunc(func(t *testing.T) {
			require.NoError(t, c.as(c.owner).RemoveToken("USDC"))
		}).
		Delegate(user, validator, reverts.UnknownTarget, tokens("USDC", 1)).
		// delisted tokens keep their price
		Revoke(user, validator, reverts.Unknown, tokens("USDC", 2)).
		AssertTotal(validator, 4).
		AssertBalance(user, base(5), tokens("USDC", 6)).
		Run(t)

	rate, decimals, err := c.as(user).Price("USDC")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), rate)
	assert.Equal(t, uint8(0), decimals)
}

func TestWithdraw(t *testing.T) {
	c := newChain(t)
	user := datagen.RandAddress()
	require.NoError(t, c.as(c.owner).AddToken("USDC", big.NewInt(1), 0))

	assert.True(t, reverts.Is(c.as(user).Withdraw([]balance.Payment{base(1)}), reverts.UnknownAddress))
	require.NoError(t, c.as(user, base(50), tokens("USDC", 10)).Deposit())

	assert.True(t, reverts.Is(c.as(user).Withdraw(nil), reverts.InvalidArgument))
	assert.True(t, reverts.Is(c.as(user).Withdraw([]balance.Payment{base(0)}), reverts.ZeroAmount))
	assert.True(t, reverts.Is(c.as(user).Withdraw([]balance.Payment{base(51)}), reverts.InsufficientBalance))

	require.NoError(t, c.as(user).Withdraw([]balance.Payment{tokens("USDC", 5), base(20)}))
	transfers := c.last.Outbox().Transfers
	require.Len(t, transfers, 2)
	assert.Equal(t, []balance.Payment{base(20)}, transfers[0].Payments)
	assert.Equal(t, []balance.Payment{tokens("USDC", 5)}, transfers[1].Payments)
	assert.Equal(t, contract, transfers[0].From)
	assert.Equal(t, user, transfers[0].To)

	require.NoError(t, c.as(user).WithdrawAll())
	transfers = c.last.Outbox().Transfers
	require.Len(t, transfers, 2)
	assert.Equal(t, []balance.Payment{base(30)}, transfers[0].Payments)
	assert.Equal(t, []balance.Payment{tokens("USDC", 5)}, transfers[1].Payments)
	assert.Len(t, c.last.Outbox().Events, 1)

	assert.True(t, reverts.Is(c.as(user).WithdrawAll(), reverts.InsufficientBalance))
}

func TestValidatorRegistry(t *testing.T) {
	c := newChain(t)
	v1, v2 := datagen.RandAddress(), datagen.RandAddress()

	assert.True(t, reverts.Is(c.as(v1).RegisterValidator(""), reverts.InvalidArgument))
	require.NoError(t, c.as(v1).RegisterValidator("alpha"))
	assert.True(t, reverts.Is(c.as(v1).RegisterValidator("beta"), reverts.AlreadyWhitelisted))
	assert.True(t, reverts.Is(c.as(v2).RegisterValidator("alpha"), reverts.AlreadyWhitelisted))
	// the failed attempt left nothing behind
	require.NoError(t, c.as(v2).RegisterValidator("beta"))

	assert.True(t, reverts.Is(c.as(v1).SetFee(thor.MaxFee+1), reverts.InvalidArgument))
	require.NoError(t, c.as(v1).SetFee(thor.MaxFee))
	assert.True(t, reverts.Is(c.as(datagen.RandAddress()).SetFee(1), reverts.UnknownAddress))

	cfg, err := c.as(v1).ValidatorConfig(v1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.Name)
	assert.Equal(t, thor.MaxFee, cfg.Fee)
	assert.Nil(t, cfg.Cap())

	require.NoError(t, c.as(v1, base(30)).AddOwnDelegation())
	total, err := c.as(v1).TotalDelegated(v1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), total)
	own, err := c.as(v1).DelegatedBy(v1, v1)
	require.NoError(t, err)
	assert.Equal(t, []balance.Payment{base(30)}, own.List())

	assert.True(t, reverts.Is(c.as(v1).SetMaxDelegation(big.NewInt(29)), reverts.CapBelowCurrent))
	require.NoError(t, c.as(v1).SetMaxDelegation(big.NewInt(30)))
	assert.True(t, reverts.Is(c.as(v1, base(1)).AddOwnDelegation(), reverts.CapExceeded))

	cfg, err = c.as(v1).ValidatorConfig(v1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), cfg.Cap())
}

func TestSovereign(t *testing.T) {
	c := newChain(t)
	sov, user := datagen.RandAddress(), datagen.RandAddress()

	require.NoError(t, c.as(sov).RegisterSovereign("chain", "a sovereign chain"))
	require.NoError(t, c.as(user, base(100)).Deposit())

	require.NoError(t, c.as(user).DelegateForSovereign("chain", []balance.Payment{base(40)}))
	assert.True(t, reverts.Is(c.as(user).DelegateForSovereign("other", []balance.Payment{base(1)}), reverts.UnknownTarget))

	assert.True(t, reverts.Is(c.as(sov).SetMaxRestakingCap(big.NewInt(39)), reverts.CapBelowCurrent))
	require.NoError(t, c.as(sov).SetMaxRestakingCap(big.NewInt(50)))
	require.NoError(t, c.as(sov, base(10)).AddOwnSecurityFunds())
	assert.True(t, reverts.Is(c.as(user).DelegateForSovereign("chain", []balance.Payment{base(1)}), reverts.CapExceeded))

	total, err := c.as(user).SovereignTotal("chain")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(50), total)

	require.NoError(t, c.as(user).RevokeFromSovereign("chain", []balance.Payment{base(15)}))
	delegated, err := c.as(user).SovereignDelegatedBy(user, "chain")
	require.NoError(t, err)
	assert.Equal(t, []balance.Payment{base(25)}, delegated.List())

	info, err := c.as(user).SovereignInfo(sov)
	require.NoError(t, err)
	assert.Equal(t, "a sovereign chain", info.Description)
	assert.Equal(t, big.NewInt(50), info.Cap())

	require.NoError(t, c.as(sov).UnregisterSovereign())
	assert.True(t, reverts.Is(c.as(sov).UnregisterSovereign(), reverts.UnknownAddress))
	assert.True(t, reverts.Is(c.as(user).DelegateForSovereign("chain", []balance.Payment{base(1)}), reverts.UnknownTarget))
	_, err = c.as(user).SovereignInfo(sov)
	assert.True(t, reverts.Is(err, reverts.UnknownAddress))

	// the name is free again
	require.NoError(t, c.as(datagen.RandAddress()).RegisterSovereign("chain", ""))
}

func TestUnbondToCaller(t *testing.T) {
	c := newChain(t)
	user, validator := datagen.RandAddress(), datagen.RandAddress()

	assert.True(t, reverts.Is(c.as(user).SetUnbondEpochs(3), reverts.Unauthorized))
	require.NoError(t, c.as(c.owner).SetUnbondEpochs(3))
	assert.Equal(t, uint64(3), c.as(user).UnbondEpochs())

	NewSequence(c).
		Deposit(user, base(100)).
		RegisterValidator(validator, "validator", 0).
		Delegate(user, validator, reverts.Unknown, base(100)).
		Revoke(user, validator, reverts.Unknown, base(30)).
		AdvanceEpochs(1).
		Revoke(user, validator, reverts.Unknown, base(20)).
		AdvanceEpochs(2).
		Run(t)

	released, err := c.as(user).UnbondToCaller()
	require.NoError(t, err)
	assert.Equal(t, []balance.Payment{base(30)}, released.List())
	transfers := c.last.Outbox().Transfers
	require.Len(t, transfers, 1)
	assert.Equal(t, user, transfers[0].To)

	buckets, err := c.as(user).UnbondBuckets(user)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, c.epoch+1, buckets[0].MaturityEpoch)

	released, err = c.as(user).UnbondToCaller()
	require.NoError(t, err)
	assert.True(t, released.IsEmpty())
	assert.Empty(t, c.last.Outbox().Transfers)

	require.NoError(t, c.as(c.owner).SetUnbondEpochs(0))
	assert.Equal(t, thor.UnbondPeriod, c.as(user).UnbondEpochs())
}

func TestInitOnce(t *testing.T) {
	c := newChain(t)
	assert.True(t, reverts.Is(c.as(c.owner).Init(datagen.RandAddress()), reverts.PreconditionFailed))
	owner, err := c.as(c.owner).Owner()
	require.NoError(t, err)
	assert.Equal(t, c.owner, owner)
}
