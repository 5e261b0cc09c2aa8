// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// Ledger holds the deposited balance of every user.
type Ledger struct {
	balances *solidity.Mapping[identity.ID, *Balance]
}

func NewLedger(sctx *solidity.Context, pos thor.Bytes32) *Ledger {
	return &Ledger{
		balances: solidity.NewMapping[identity.ID, *Balance](sctx, pos),
	}
}

// Get returns the balance of id, never nil.
func (l *Ledger) Get(id identity.ID) (*Balance, error) {
	b, err := l.balances.Get(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = &Balance{}
	}
	return b, nil
}

func (l *Ledger) put(id identity.ID, before, after *Balance) error {
	if before.IsEmpty() {
		return l.balances.Insert(id, after)
	}
	return l.balances.Update(id, after)
}

// Credit adds payments to the balance of id.
func (l *Ledger) Credit(id identity.ID, payments ...Payment) error {
	if err := identity.RequireNonNull(id); err != nil {
		return err
	}
	b, err := l.Get(id)
	if err != nil {
		return err
	}
	next := b.Clone()
	for _, p := range payments {
		if err := next.Add(p); err != nil {
			return err
		}
	}
	return l.put(id, b, next)
}

// CreditBalance merges a whole balance into the balance of id.
func (l *Ledger) CreditBalance(id identity.ID, other *Balance) error {
	if other.IsEmpty() {
		return nil
	}
	return l.Credit(id, other.List()...)
}

// Debit deducts payments from the balance of id, all or nothing.
func (l *Ledger) Debit(id identity.ID, payments ...Payment) error {
	if err := identity.RequireNonNull(id); err != nil {
		return err
	}
	b, err := l.Get(id)
	if err != nil {
		return err
	}
	next := b.Clone()
	if err := next.DeductAll(payments); err != nil {
		return err
	}
	return l.put(id, b, next)
}

// Take empties the balance of id and returns what it held.
func (l *Ledger) Take(id identity.ID) (*Balance, error) {
	b, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if b.IsEmpty() {
		return b, nil
	}
	if err := l.balances.Delete(id); err != nil {
		return nil, err
	}
	return b, nil
}
