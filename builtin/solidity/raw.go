// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/restake/thor"
)

// Raw stores one rlp encoded value at a fixed position.
type Raw[V any] struct {
	context *Context
	pos     thor.Bytes32
}

func NewRaw[V any](context *Context, pos thor.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: pos}
}

func (r *Raw[V]) Get() (value V, err error) {
	raw, err := r.context.state.GetRawStorage(r.context.address, r.pos)
	if err != nil {
		return value, err
	}
	if err := r.context.UseGas(toWordSize(len(raw)) * thor.SloadGas); err != nil {
		return value, err
	}
	return decode[V](raw)
}

// Set writes value, a zero value clears the slot.
func (r *Raw[V]) Set(value V, newValue bool) error {
	if isZero(value) {
		r.context.state.SetRawStorage(r.context.address, r.pos, nil)
		return nil
	}
	val, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	gas := thor.SstoreResetGas
	if newValue {
		gas = thor.SstoreSetGas
	}
	if err := r.context.UseGas(toWordSize(len(val)) * gas); err != nil {
		return err
	}
	r.context.state.SetRawStorage(r.context.address, r.pos, val)
	return nil
}
