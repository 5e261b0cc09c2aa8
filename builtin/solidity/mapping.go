// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/restake/thor"
)

type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction for built-in contracts, similar to the mapping in Solidity.
// Zero values (including zero big.Int and empty collections) are never stored, writing one clears the slot.
type Mapping[K Key, V any] struct {
	context *Context
	basePos thor.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos thor.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) thor.Bytes32 {
	return thor.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value of key. An empty slot yields the zero value of V.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	raw, err := m.context.state.GetRawStorage(m.context.address, m.position(key))
	if err != nil {
		return value, err
	}
	if err := m.context.UseGas(toWordSize(len(raw)) * thor.SloadGas); err != nil {
		return value, err
	}
	return decode[V](raw)
}

// Exists reports whether key holds a non-zero value.
func (m *Mapping[K, V]) Exists(key K) (bool, error) {
	raw, err := m.context.state.GetRawStorage(m.context.address, m.position(key))
	if err != nil {
		return false, err
	}
	if err := m.context.UseGas(thor.SloadGas); err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Insert writes a value into an empty slot.
func (m *Mapping[K, V]) Insert(key K, value V) error {
	return m.set(key, value, true)
}

// Update overwrites an existing slot.
func (m *Mapping[K, V]) Update(key K, value V) error {
	return m.set(key, value, false)
}

// Upsert writes value charging by whether the slot was empty.
func (m *Mapping[K, V]) Upsert(key K, value V) error {
	exists, err := m.Exists(key)
	if err != nil {
		return err
	}
	return m.set(key, value, !exists)
}

// Delete clears the slot.
func (m *Mapping[K, V]) Delete(key K) error {
	var zero V
	return m.set(key, zero, false)
}

func (m *Mapping[K, V]) set(key K, value V, newValue bool) error {
	position := m.position(key)
	if isZero(value) {
		m.context.state.SetRawStorage(m.context.address, position, nil)
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
	if err := m.context.UseGas(toWordSize(len(val)) * gas); err != nil {
		return err
	}
	m.context.state.SetRawStorage(m.context.address, position, val)
	return nil
}

func decode[V any](raw []byte) (value V, err error) {
	if len(raw) == 0 {
		return value, nil
	}
	// rlp allocates nil pointers while decoding
	err = rlp.DecodeBytes(raw, &value)
	return
}

type emptiable interface {
	IsEmpty() bool
}

func isZero(v any) bool {
	switch tv := v.(type) {
	case *big.Int:
		return tv == nil || tv.Sign() == 0
	case emptiable:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return true
		}
		return tv.IsEmpty()
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	return rv.IsZero()
}
