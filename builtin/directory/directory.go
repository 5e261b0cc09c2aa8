// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package directory

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/linkedlist"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
)

var logger = log.WithContext("pkg", "directory")

// MaxEntries bounds the number of whitelisted contracts, owner-updatable.
var MaxEntries = solidity.NewConfigVariable("max-delegation-contracts", thor.MaxDelegationContracts)

// Directory keeps whitelisted delegation contracts ordered by descending yield.
// Entries of equal yield are ordered newest first.
type Directory struct {
	sctx    *solidity.Context
	ids     *identity.Registry
	list    *linkedlist.List
	entries *solidity.Mapping[identity.ID, *Entry]
}

func New(sctx *solidity.Context) *Directory {
	return &Directory{
		sctx:    sctx,
		ids:     identity.New(sctx, "directory"),
		list:    linkedlist.New(sctx, "directory-list"),
		entries: solidity.NewMapping[identity.ID, *Entry](sctx, thor.BytesToBytes32([]byte("directory-entries"))),
	}
}

func (d *Directory) MaxEntries() uint64 {
	return MaxEntries.Get(d.sctx)
}

func (d *Directory) SetMaxEntries(n uint64) {
	MaxEntries.Override(d.sctx, n)
}

// Whitelist adds a delegation contract.
func (d *Directory) Whitelist(addr thor.Address, entry *Entry) error {
	n, err := d.list.Len()
	if err != nil {
		return err
	}
	// the bound is checked before inserting, so a full directory holds MaxEntries+1 contracts
	if n > d.MaxEntries() {
		return reverts.New(reverts.DirectoryFull, "maximum number of delegation addresses reached")
	}
	id, err := d.ids.IDOf(addr)
	if err != nil {
		return err
	}
	if !id.IsNull() {
		return reverts.Newf(reverts.AlreadyWhitelisted, "delegation contract %v already whitelisted", addr)
	}
	entry = entry.Clone()
	if entry.TotalStaked.Cmp(entry.Cap) > 0 {
		return reverts.New(reverts.CapacityExceeded, "total staked above delegation cap")
	}

	if id, err = d.ids.InsertNew(addr); err != nil {
		return err
	}
	if err := d.entries.Insert(id, entry); err != nil {
		return errors.Wrap(err, "failed to insert entry")
	}
	if err := d.link(id, entry.Yield); err != nil {
		return err
	}
	logger.Debug("delegation contract whitelisted", "address", addr, "yield", entry.Yield)
	return nil
}

// link inserts id before the first entry whose yield is not above yield, or at the tail.
func (d *Directory) link(id identity.ID, yield uint64) error {
	ptr, err := d.list.Head()
	if err != nil {
		return err
	}
	for !ptr.IsNull() {
		e, err := d.entries.Get(ptr)
		if err != nil {
			return err
		}
		if yield >= e.Yield {
			return d.list.InsertBefore(id, ptr)
		}
		if ptr, err = d.list.Next(ptr); err != nil {
			return err
		}
	}
	return d.list.PushBack(id)
}

func (d *Directory) lookup(addr thor.Address) (identity.ID, *Entry, error) {
	id, err := d.ids.IDOf(addr)
	if err != nil {
		return identity.Null, nil, err
	}
	if id.IsNull() {
		return identity.Null, nil, reverts.Newf(reverts.UnknownTarget, "delegation contract %v not whitelisted", addr)
	}
	e, err := d.entries.Get(id)
	if err != nil {
		return identity.Null, nil, errors.Wrap(err, "failed to get entry")
	}
	return id, e.normalize(), nil
}

// Reorder moves the entry to the position matching newYield.
func (d *Directory) Reorder(addr thor.Address, newYield uint64) error {
	id, e, err := d.lookup(addr)
	if err != nil {
		return err
	}
	e.Yield = newYield
	if err := d.entries.Update(id, e); err != nil {
		return err
	}
	if err := d.list.Remove(id); err != nil {
		return err
	}
	return d.link(id, newYield)
}

// UpdateParams lets the entry admin change the published parameters.
func (d *Directory) UpdateParams(caller, addr thor.Address, totalStaked, limit *big.Int, nodes, yield uint64) error {
	id, e, err := d.lookup(addr)
	if err != nil {
		return err
	}
	if e.Admin != caller {
		return reverts.New(reverts.PreconditionFailed, "only delegation admin")
	}
	if totalStaked == nil || limit == nil || totalStaked.Cmp(limit) > 0 {
		return reverts.New(reverts.CapacityExceeded, "total staked above delegation cap")
	}
	oldYield := e.Yield
	e.TotalStaked = new(big.Int).Set(totalStaked)
	e.Cap = new(big.Int).Set(limit)
	e.Nodes = nodes
	e.Yield = yield
	if err := d.entries.Update(id, e); err != nil {
		return err
	}
	if oldYield == yield {
		return nil
	}
	if err := d.list.Remove(id); err != nil {
		return err
	}
	return d.link(id, yield)
}

func (d *Directory) ChangeAdmin(addr, admin thor.Address) error {
	id, e, err := d.lookup(addr)
	if err != nil {
		return err
	}
	e.Admin = admin
	return d.entries.Update(id, e)
}

// Demote moves the entry to the tail.
func (d *Directory) Demote(addr thor.Address) error {
	id, _, err := d.lookup(addr)
	if err != nil {
		return err
	}
	if err := d.list.Remove(id); err != nil {
		return err
	}
	logger.Debug("delegation contract demoted", "address", addr)
	return d.list.PushBack(id)
}

func (d *Directory) find(match func(e *Entry) bool) (thor.Address, error) {
	var found identity.ID
	errFound := errors.New("found")
	err := d.Iter(func(id identity.ID, e *Entry) error {
		if match(e) {
			found = id
			return errFound
		}
		return nil
	})
	if err != nil && err != errFound {
		return thor.Address{}, err
	}
	if found.IsNull() {
		return thor.Address{}, reverts.New(reverts.NoEligibleTarget, "no delegation contract available")
	}
	addr, _, err := d.ids.AddressOf(found)
	return addr, err
}

// SelectForStake returns the first contract with room for amount.
func (d *Directory) SelectForStake(amount *big.Int) (thor.Address, error) {
	return d.find(func(e *Entry) bool {
		return amount.Cmp(e.SpaceLeft()) <= 0
	})
}

// SelectForUnstake returns the first contract holding at least amount of ledger stake.
func (d *Directory) SelectForUnstake(amount *big.Int) (thor.Address, error) {
	return d.find(func(e *Entry) bool {
		return e.StakedFromLedger.Cmp(amount) >= 0
	})
}

func (d *Directory) update(addr thor.Address, fn func(e *Entry) error) error {
	id, e, err := d.lookup(addr)
	if err != nil {
		return err
	}
	if err := fn(e); err != nil {
		return err
	}
	return d.entries.Update(id, e)
}

func sub(from *big.Int, amount *big.Int, what string) (*big.Int, error) {
	if from.Cmp(amount) < 0 {
		return nil, reverts.Newf(reverts.PreconditionFailed, "%s %v below %v", what, from, amount)
	}
	return new(big.Int).Sub(from, amount), nil
}

// AddStaked books amount staked by the ledger.
func (d *Directory) AddStaked(addr thor.Address, amount *big.Int) error {
	return d.update(addr, func(e *Entry) error {
		e.StakedFromLedger = new(big.Int).Add(e.StakedFromLedger, amount)
		return nil
	})
}

// MoveToUnstaked moves amount from staked to unstaked.
func (d *Directory) MoveToUnstaked(addr thor.Address, amount *big.Int) error {
	return d.update(addr, func(e *Entry) (err error) {
		if e.StakedFromLedger, err = sub(e.StakedFromLedger, amount, "staked"); err != nil {
			return err
		}
		e.UnstakedFromLedger = new(big.Int).Add(e.UnstakedFromLedger, amount)
		return nil
	})
}

// AddUnbonded books amount withdrawn from the contract.
func (d *Directory) AddUnbonded(addr thor.Address, amount *big.Int) error {
	return d.update(addr, func(e *Entry) error {
		e.UnbondedFromLedger = new(big.Int).Add(e.UnbondedFromLedger, amount)
		return nil
	})
}

// SettleUnbonded consumes amount of unbonded funds paid out to a position holder.
func (d *Directory) SettleUnbonded(addr thor.Address, amount *big.Int) error {
	return d.update(addr, func(e *Entry) (err error) {
		if e.UnstakedFromLedger, err = sub(e.UnstakedFromLedger, amount, "unstaked"); err != nil {
			return err
		}
		e.UnbondedFromLedger, err = sub(e.UnbondedFromLedger, amount, "unbonded")
		return err
	})
}

// MarkClaimed records that the entry behind id was claimed in the cycle of epoch.
func (d *Directory) MarkClaimed(id identity.ID, epoch uint64) error {
	e, err := d.entries.Get(id)
	if err != nil {
		return errors.Wrap(err, "failed to get entry")
	}
	if e == nil {
		return reverts.Newf(reverts.UnknownTarget, "unknown handle %v", id)
	}
	e = e.normalize()
	e.ClaimedEpoch = epoch
	return d.entries.Update(id, e)
}

// Get returns the entry of addr, nil if not whitelisted.
func (d *Directory) Get(addr thor.Address) (*Entry, error) {
	_, e, err := d.lookup(addr)
	if reverts.Is(err, reverts.UnknownTarget) {
		return nil, nil
	}
	return e, err
}

// At returns the address and entry behind a handle.
func (d *Directory) At(id identity.ID) (thor.Address, *Entry, error) {
	addr, ok, err := d.ids.AddressOf(id)
	if err != nil {
		return thor.Address{}, nil, err
	}
	if !ok {
		return thor.Address{}, nil, reverts.Newf(reverts.UnknownTarget, "unknown handle %v", id)
	}
	e, err := d.entries.Get(id)
	if err != nil {
		return thor.Address{}, nil, err
	}
	return addr, e.normalize(), nil
}

func (d *Directory) Head() (identity.ID, error) {
	return d.list.Head()
}

func (d *Directory) Next(id identity.ID) (identity.ID, error) {
	return d.list.Next(id)
}

func (d *Directory) Len() (uint64, error) {
	return d.list.Len()
}

// Iter walks entries from the highest yield.
func (d *Directory) Iter(callback func(identity.ID, *Entry) error) error {
	return d.list.Iter(func(id identity.ID) error {
		e, err := d.entries.Get(id)
		if err != nil {
			return err
		}
		return callback(id, e.normalize())
	})
}

// Addresses lists the whitelisted contracts in directory order.
func (d *Directory) Addresses() ([]thor.Address, error) {
	var addrs []thor.Address
	err := d.list.Iter(func(id identity.ID) error {
		addr, _, err := d.ids.AddressOf(id)
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
		return nil
	})
	return addrs, err
}
