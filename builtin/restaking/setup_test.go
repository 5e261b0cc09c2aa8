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
	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var contract = thor.BytesToAddress([]byte("restaking"))

// chain drives the restaking contract across invocations sharing one state.
type chain struct {
	st    *state.State
	owner thor.Address
	epoch uint64
	last  *xenv.Environment
}

func newChain(t *testing.T) *chain {
	c := &chain{st: state.New(lvldb.NewMem(), 0), owner: datagen.RandAddress(), epoch: 1}
	require.NoError(t, c.as(c.owner).Init(c.owner))
	return c
}

// as binds the contract to a fresh invocation by caller with payIn attached.
func (c *chain) as(caller thor.Address, payIn ...balance.Payment) *Restaking {
	c.last = xenv.New(
		c.st,
		xenv.BlockContext{Number: c.epoch * thor.EpochLength(), Epoch: c.epoch},
		caller,
		payIn,
		gascharger.New(thor.DefaultInvocationBudget),
	)
	return New(contract, c.last)
}

func base(v int64) balance.Payment {
	return balance.Base(big.NewInt(v))
}

func tokens(token string, v int64) balance.Payment {
	return balance.NewPayment(balance.Token(token), big.NewInt(v))
}

type TestFunc func(t *testing.T)

// TestSequence runs steps in order, each in its own invocation.
type TestSequence struct {
	chain *chain
	funcs []TestFunc
}

func NewSequence(c *chain) *TestSequence {
	return &TestSequence{chain: c}
}

func (s *TestSequence) AddFunc(f TestFunc) *TestSequence {
	s.funcs = append(s.funcs, f)
	return s
}

// expect fails the test unless err matches kind, Unknown meaning success.
func expect(t *testing.T, err error, kind reverts.Kind, step string) {
	t.Helper()
	if kind == reverts.Unknown {
		require.NoError(t, err, step)
		return
	}
	require.Error(t, err, step)
	assert.Equal(t, kind, reverts.KindOf(err), "%s: %v", step, err)
}

func (s *TestSequence) Deposit(user thor.Address, payments ...balance.Payment) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		expect(t, s.chain.as(user, payments...).Deposit(), reverts.Unknown, "deposit")
	})
}

func (s *TestSequence) RegisterValidator(validator thor.Address, name string, maxTotal int64) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		expect(t, s.chain.as(validator).RegisterValidator(name), reverts.Unknown, "register validator")
		if maxTotal > 0 {
			expect(t, s.chain.as(validator).SetMaxDelegation(big.NewInt(maxTotal)), reverts.Unknown, "set max delegation")
		}
	})
}

func (s *TestSequence) Delegate(user, validator thor.Address, kind reverts.Kind, payments ...balance.Payment) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		expect(t, s.chain.as(user).DelegateToValidator(validator, payments), kind, "delegate")
	})
}

func (s *TestSequence) Revoke(user, validator thor.Address, kind reverts.Kind, payments ...balance.Payment) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		expect(t, s.chain.as(user).RevokeFromValidator(validator, payments), kind, "revoke")
	})
}

func (s *TestSequence) AdvanceEpochs(n uint64) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		s.chain.epoch += n
	})
}

func (s *TestSequence) AssertTotal(validator thor.Address, expected int64) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		total, err := s.chain.as(validator).TotalDelegated(validator)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(expected), total, "total delegated")
	})
}

func (s *TestSequence) AssertBalance(user thor.Address, expected ...balance.Payment) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		b, err := s.chain.as(user).UserTokens(user)
		require.NoError(t, err)
		want, err := balance.New(expected...)
		require.NoError(t, err)
		assert.Equal(t, want.List(), b.List(), "balance of %v", user)
	})
}

// AssertUnbondToLedger releases matured buckets back to the balance and checks what came out.
func (s *TestSequence) AssertUnbondToLedger(user thor.Address, expected ...balance.Payment) *TestSequence {
	return s.AddFunc(func(t *testing.T) {
		released, err := s.chain.as(user).UnbondToLedger()
		require.NoError(t, err)
		want, err := balance.New(expected...)
		require.NoError(t, err)
		assert.Equal(t, want.List(), released.List(), "released at epoch %d", s.chain.epoch)
	})
}

func (s *TestSequence) Run(t *testing.T) {
	for _, f := range s.funcs {
		f(t)
	}
}
