// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
)

// BlockContext block context.
type BlockContext struct {
	Number uint64
	Epoch  uint64
	Time   uint64
}

// Environment is the env of one invocation.
type Environment struct {
	state    *state.State
	blockCtx BlockContext
	caller   thor.Address
	payIn    []balance.Payment
	charger  *gascharger.Charger
	outbox   Outbox
}

// New create a new env.
func New(
	state *state.State,
	blockCtx BlockContext,
	caller thor.Address,
	payIn []balance.Payment,
	charger *gascharger.Charger,
) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		caller:   caller,
		payIn:    clonePayments(payIn),
		charger:  charger,
	}
}

func (env *Environment) State() *state.State          { return env.state }
func (env *Environment) BlockContext() BlockContext   { return env.blockCtx }
func (env *Environment) Caller() thor.Address         { return env.caller }
func (env *Environment) Charger() *gascharger.Charger { return env.charger }
func (env *Environment) Outbox() *Outbox              { return &env.outbox }

// PayIn returns a copy of the payments attached to the invocation.
func (env *Environment) PayIn() []balance.Payment {
	return clonePayments(env.payIn)
}

// Context binds the storage of contract to this invocation.
func (env *Environment) Context(contract thor.Address) *solidity.Context {
	return solidity.NewContext(contract, env.state, env.charger)
}

func (env *Environment) UseGas(gas uint64) error {
	if env.charger == nil {
		return nil
	}
	return env.charger.Charge(gas)
}

// Transfer queues a payout. Empty payouts are dropped.
func (env *Environment) Transfer(from, to thor.Address, payments ...balance.Payment) {
	if len(payments) == 0 {
		return
	}
	env.outbox.Transfers = append(env.outbox.Transfers, Transfer{From: from, To: to, Payments: clonePayments(payments)})
}

// GasForAsyncCall returns the gas forwarded to an async call, keeping enough for its callback.
func (env *Environment) GasForAsyncCall() (uint64, error) {
	if env.charger == nil {
		return thor.MinGasForAsyncCall, nil
	}
	left := env.charger.Remaining()
	if left <= thor.MinGasForAsyncCall+thor.MinGasForCallback {
		return 0, reverts.New(reverts.InsufficientComputeBudget, "insufficient gas for async call")
	}
	return left - thor.MinGasForCallback, nil
}

// Call queues a remote call, charging the gas it needs to leave the invocation.
func (env *Environment) Call(call Call) error {
	gas := thor.MinGasForAsyncCall
	if call.Kind == CallClaimRewards {
		gas = call.Gas
	}
	if env.charger != nil {
		if err := env.charger.ChargeCall(gas); err != nil {
			return err
		}
	}
	call.Value = cloneBig(call.Value)
	env.outbox.Calls = append(env.outbox.Calls, call)
	return nil
}

// Emit queues an audit event.
func (env *Environment) Emit(contract thor.Address, name string, subject thor.Address, data map[string]string) {
	env.outbox.Events = append(env.outbox.Events, Event{
		Contract: contract,
		Name:     name,
		Subject:  subject,
		Block:    env.blockCtx.Number,
		Data:     data,
	})
}
