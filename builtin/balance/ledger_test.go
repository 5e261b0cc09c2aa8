// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
)

func newLedger() *Ledger {
	st := state.New(lvldb.NewMem(), 0)
	sctx := solidity.NewContext(thor.BytesToAddress([]byte("ledger")), st, gascharger.New(math.MaxUint64))
	return NewLedger(sctx, thor.BytesToBytes32([]byte("balances")))
}

func TestLedger(t *testing.T) {
	l := newLedger()
	user := identity.ID(1)

	b, err := l.Get(user)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())

	require.NoError(t, l.Credit(user, Base(big.NewInt(100)), NewPayment(usdc, big.NewInt(5))))
	require.NoError(t, l.Credit(user, NewPayment(usdc, big.NewInt(5))))

	b, err = l.Get(user)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), b.AmountOf(usdc))

	err = l.Debit(user, Base(big.NewInt(10)), NewPayment(usdc, big.NewInt(11)))
	assert.True(t, reverts.Is(err, reverts.InsufficientBalance))
	b, err = l.Get(user)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), b.AmountOf(BaseAsset), "failed debit changes nothing")

	require.NoError(t, l.Debit(user, Base(big.NewInt(100))))

	taken, err := l.Take(user)
	require.NoError(t, err)
	assert.Equal(t, []Payment{NewPayment(usdc, big.NewInt(10))}, taken.List())

	b, err = l.Get(user)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())

	taken, err = l.Take(user)
	require.NoError(t, err)
	assert.True(t, taken.IsEmpty())

	assert.True(t, reverts.Is(l.Credit(identity.Null, Base(big.NewInt(1))), reverts.UnknownAddress))
}

func TestLedgerCreditBalance(t *testing.T) {
	l := newLedger()
	other, err := New(Base(big.NewInt(2)), NewPayment(wbtc, big.NewInt(3)))
	require.NoError(t, err)

	require.NoError(t, l.CreditBalance(identity.ID(4), other))
	require.NoError(t, l.CreditBalance(identity.ID(4), &Balance{}))

	b, err := l.Get(identity.ID(4))
	require.NoError(t, err)
	assert.Equal(t, other.List(), b.List())
}
