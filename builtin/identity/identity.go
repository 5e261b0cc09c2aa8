// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package identity

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// ID is the compact handle of an interned address. Null is never assigned.
type ID uint64

const Null ID = 0

func (id ID) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func (id ID) IsNull() bool {
	return id == Null
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Registry interns addresses into monotonically allocated ids.
// Ids are never reused, even after the address is removed.
type Registry struct {
	counter *solidity.Raw[uint64]
	ids     *solidity.Mapping[thor.Address, ID]
	addrs   *solidity.Mapping[ID, thor.Address]
}

// New creates a registry whose slots are derived from prefix.
func New(sctx *solidity.Context, prefix string) *Registry {
	return &Registry{
		counter: solidity.NewRaw[uint64](sctx, thor.BytesToBytes32([]byte(prefix+"-counter"))),
		ids:     solidity.NewMapping[thor.Address, ID](sctx, thor.BytesToBytes32([]byte(prefix+"-ids"))),
		addrs:   solidity.NewMapping[ID, thor.Address](sctx, thor.BytesToBytes32([]byte(prefix+"-addrs"))),
	}
}

// IDOf returns the id of addr, or Null if never seen.
func (r *Registry) IDOf(addr thor.Address) (ID, error) {
	return r.ids.Get(addr)
}

// IDOfOrInsert returns the id of addr, allocating a fresh one on first sight.
func (r *Registry) IDOfOrInsert(addr thor.Address) (ID, error) {
	id, err := r.IDOf(addr)
	if err != nil || !id.IsNull() {
		return id, err
	}
	return r.insert(addr)
}

// InsertNew allocates an id for addr, failing if it is already registered.
func (r *Registry) InsertNew(addr thor.Address) (ID, error) {
	id, err := r.IDOf(addr)
	if err != nil {
		return Null, err
	}
	if !id.IsNull() {
		return Null, reverts.Newf(reverts.AlreadyWhitelisted, "address %v already registered", addr)
	}
	return r.insert(addr)
}

func (r *Registry) insert(addr thor.Address) (ID, error) {
	last, err := r.counter.Get()
	if err != nil {
		return Null, err
	}
	if last == math.MaxUint64 {
		return Null, errors.New("identity counter overflow")
	}
	id := ID(last + 1)
	if err := r.counter.Set(uint64(id), last == 0); err != nil {
		return Null, err
	}
	if err := r.ids.Insert(addr, id); err != nil {
		return Null, err
	}
	if err := r.addrs.Insert(id, addr); err != nil {
		return Null, err
	}
	return id, nil
}

// RequireNonNull fails with UnknownAddress for the Null id.
func RequireNonNull(id ID) error {
	if id.IsNull() {
		return reverts.New(reverts.UnknownAddress, "unknown address")
	}
	return nil
}

// IDNonNull returns the id of addr, failing with UnknownAddress if never seen.
func (r *Registry) IDNonNull(addr thor.Address) (ID, error) {
	id, err := r.IDOf(addr)
	if err != nil {
		return Null, err
	}
	if err := RequireNonNull(id); err != nil {
		return Null, reverts.Newf(reverts.UnknownAddress, "unknown address %v", addr)
	}
	return id, nil
}

// Remove erases both mappings of addr and returns the removed id, or Null if absent.
// The counter is left untouched so the id is never handed out again.
func (r *Registry) Remove(addr thor.Address) (ID, error) {
	id, err := r.IDOf(addr)
	if err != nil || id.IsNull() {
		return Null, err
	}
	if err := r.ids.Delete(addr); err != nil {
		return Null, err
	}
	if err := r.addrs.Delete(id); err != nil {
		return Null, err
	}
	return id, nil
}

// AddressOf returns the address bound to id.
func (r *Registry) AddressOf(id ID) (thor.Address, bool, error) {
	addr, err := r.addrs.Get(id)
	if err != nil {
		return thor.Address{}, false, err
	}
	return addr, !addr.IsZero(), nil
}

// Count returns the number of ids ever allocated.
func (r *Registry) Count() (uint64, error) {
	return r.counter.Get()
}
