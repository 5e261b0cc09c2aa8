// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"context"
	"encoding/binary"
	"math"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

type Handle uint64

func (h Handle) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(h))
}

// Pending is a request waiting for its result. Callback names the continuation,
// Data holds its rlp encoded arguments.
type Pending struct {
	Kind     xenv.CallKind
	Target   thor.Address
	Value    *big.Int
	Callback string
	Data     []byte
	Caller   thor.Address
}

// Result is the outcome of a remote call, Amount is what the target paid back.
type Result struct {
	Handle Handle
	OK     bool
	Amount *big.Int
}

// Endpoint receives calls once the invocation that issued them commits.
type Endpoint interface {
	Send(ctx context.Context, call xenv.Call) error
}

// Dispatcher persists pending requests of one contract.
type Dispatcher struct {
	sctx    *solidity.Context
	counter *solidity.Raw[uint64]
	pending *solidity.Mapping[Handle, *Pending]
}

func NewDispatcher(sctx *solidity.Context) *Dispatcher {
	return &Dispatcher{
		sctx:    sctx,
		counter: solidity.NewRaw[uint64](sctx, thor.BytesToBytes32([]byte("remote-counter"))),
		pending: solidity.NewMapping[Handle, *Pending](sctx, thor.BytesToBytes32([]byte("remote-pending"))),
	}
}

// Request records a pending call and queues it on env.
func (d *Dispatcher) Request(env *xenv.Environment, kind xenv.CallKind, target thor.Address, value *big.Int, callback string, data []byte) (Handle, error) {
	if kind == xenv.CallClaimRewards {
		return 0, errors.New("claim rewards calls have no result")
	}
	gas, err := env.GasForAsyncCall()
	if err != nil {
		return 0, err
	}
	n, err := d.counter.Get()
	if err != nil {
		return 0, err
	}
	if n == math.MaxUint64 {
		return 0, errors.New("remote handle counter overflow")
	}
	handle := Handle(n + 1)
	if err := d.counter.Set(n+1, n == 0); err != nil {
		return 0, err
	}
	if value == nil {
		value = new(big.Int)
	}
	p := &Pending{
		Kind:     kind,
		Target:   target,
		Value:    new(big.Int).Set(value),
		Callback: callback,
		Data:     data,
		Caller:   env.Caller(),
	}
	if err := d.pending.Insert(handle, p); err != nil {
		return 0, errors.Wrap(err, "failed to persist pending call")
	}
	if err := env.Call(xenv.Call{
		Handle: uint64(handle),
		Kind:   kind,
		From:   d.sctx.Address(),
		Target: target,
		Value:  value,
		Gas:    gas,
	}); err != nil {
		return 0, err
	}
	metricRemoteCalls().AddWithLabel(1, map[string]string{"kind": kind.String(), "outcome": "requested"})
	return handle, nil
}

// Notify queues a fire and forget rewards claim.
func (d *Dispatcher) Notify(env *xenv.Environment, target thor.Address) error {
	return env.Call(xenv.Call{
		Kind:   xenv.CallClaimRewards,
		From:   d.sctx.Address(),
		Target: target,
		Gas:    thor.DefaultGasToClaimRewards,
	})
}

// Resolve loads and deletes the pending record of handle, so a result applies once.
func (d *Dispatcher) Resolve(handle Handle) (*Pending, error) {
	p, err := d.pending.Get(handle)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending call")
	}
	if p == nil {
		return nil, reverts.Newf(reverts.UnknownTarget, "unknown remote handle %d", handle)
	}
	if err := d.pending.Delete(handle); err != nil {
		return nil, err
	}
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	return p, nil
}

// Lookup returns the pending record of handle without consuming it.
func (d *Dispatcher) Lookup(handle Handle) (*Pending, error) {
	return d.pending.Get(handle)
}
