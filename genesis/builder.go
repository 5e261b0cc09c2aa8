// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
)

// Builder helper to build the initial ledger state.
type Builder struct {
	timestamp uint64
	config    thor.Config
	calls     []call
}

type call struct {
	action string
	caller thor.Address
	fn     runtime.Action
}

// Timestamp set the launch time.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// Config set the clock parameters.
func (b *Builder) Config(cfg thor.Config) *Builder {
	b.config = cfg
	return b
}

// Call add an invocation made by caller.
func (b *Builder) Call(action string, caller thor.Address, fn runtime.Action) *Builder {
	b.calls = append(b.calls, call{action, caller, fn})
	return b
}

// Build runs every call against rt in order. Any reverted call fails the build.
func (b *Builder) Build(ctx context.Context, rt *runtime.Runtime) error {
	for i, c := range b.calls {
		receipt, err := rt.Invoke(ctx, runtime.Invocation{Action: c.action, Caller: c.caller}, c.fn)
		if err != nil {
			return errors.Wrapf(err, "call #%d %v", i, c.action)
		}
		if receipt.Reverted {
			return errors.Wrapf(receipt.Err(), "call #%d %v reverted", i, c.action)
		}
	}
	return nil
}
