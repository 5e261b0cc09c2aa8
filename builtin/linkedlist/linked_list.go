// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// List is a persistent doubly linked list of ids. identity.Null terminates both ends.
type List struct {
	head  *solidity.Raw[identity.ID]
	tail  *solidity.Raw[identity.ID]
	count *solidity.Raw[uint64]
	next  *solidity.Mapping[identity.ID, identity.ID]
	prev  *solidity.Mapping[identity.ID, identity.ID]
}

// New creates a list whose slots are derived from prefix.
func New(sctx *solidity.Context, prefix string) *List {
	slot := func(name string) thor.Bytes32 {
		return thor.BytesToBytes32([]byte(prefix + "-" + name))
	}
	return &List{
		head:  solidity.NewRaw[identity.ID](sctx, slot("head")),
		tail:  solidity.NewRaw[identity.ID](sctx, slot("tail")),
		count: solidity.NewRaw[uint64](sctx, slot("count")),
		next:  solidity.NewMapping[identity.ID, identity.ID](sctx, slot("next")),
		prev:  solidity.NewMapping[identity.ID, identity.ID](sctx, slot("prev")),
	}
}

func (l *List) Head() (identity.ID, error) {
	return l.head.Get()
}

func (l *List) Tail() (identity.ID, error) {
	return l.tail.Get()
}

// Next returns the successor of id, or Null at the tail.
func (l *List) Next(id identity.ID) (identity.ID, error) {
	return l.next.Get(id)
}

// Prev returns the predecessor of id, or Null at the head.
func (l *List) Prev(id identity.ID) (identity.ID, error) {
	return l.prev.Get(id)
}

func (l *List) Len() (uint64, error) {
	return l.count.Get()
}

// Contains reports whether id is linked into the list.
func (l *List) Contains(id identity.ID) (bool, error) {
	if id.IsNull() {
		return false, nil
	}
	prev, err := l.prev.Get(id)
	if err != nil || !prev.IsNull() {
		return !prev.IsNull(), err
	}
	head, err := l.head.Get()
	if err != nil {
		return false, err
	}
	return head == id, nil
}

func (l *List) setCount(delta int) error {
	n, err := l.count.Get()
	if err != nil {
		return err
	}
	if delta < 0 && n == 0 {
		return errors.New("list count underflow")
	}
	return l.count.Set(uint64(int64(n)+int64(delta)), n == 0)
}

func (l *List) requireDetached(id identity.ID) error {
	if err := identity.RequireNonNull(id); err != nil {
		return err
	}
	linked, err := l.Contains(id)
	if err != nil {
		return err
	}
	if linked {
		return errors.Errorf("id %v already linked", id)
	}
	return nil
}

// PushBack appends id at the tail.
func (l *List) PushBack(id identity.ID) error {
	if err := l.requireDetached(id); err != nil {
		return err
	}
	oldTail, err := l.tail.Get()
	if err != nil {
		return err
	}
	if oldTail.IsNull() {
		if err := l.head.Set(id, true); err != nil {
			return err
		}
	} else {
		if err := l.next.Insert(oldTail, id); err != nil {
			return err
		}
		if err := l.prev.Insert(id, oldTail); err != nil {
			return err
		}
	}
	if err := l.tail.Set(id, oldTail.IsNull()); err != nil {
		return err
	}
	return l.setCount(1)
}

// InsertBefore links id right before at, which must be in the list.
func (l *List) InsertBefore(id, at identity.ID) error {
	if err := l.requireDetached(id); err != nil {
		return err
	}
	linked, err := l.Contains(at)
	if err != nil {
		return err
	}
	if !linked {
		return errors.Errorf("id %v not linked", at)
	}
	prev, err := l.prev.Get(at)
	if err != nil {
		return err
	}
	if prev.IsNull() {
		if err := l.head.Set(id, false); err != nil {
			return err
		}
	} else {
		if err := l.next.Update(prev, id); err != nil {
			return err
		}
		if err := l.prev.Insert(id, prev); err != nil {
			return err
		}
	}
	if err := l.next.Insert(id, at); err != nil {
		return err
	}
	if err := l.prev.Upsert(at, id); err != nil {
		return err
	}
	return l.setCount(1)
}

// Remove unlinks id, reconnecting its neighbours. Removing an absent id is a no-op.
func (l *List) Remove(id identity.ID) error {
	linked, err := l.Contains(id)
	if err != nil || !linked {
		return err
	}
	prev, err := l.prev.Get(id)
	if err != nil {
		return err
	}
	next, err := l.next.Get(id)
	if err != nil {
		return err
	}

	if prev.IsNull() {
		if err := l.head.Set(next, false); err != nil {
			return err
		}
	} else if err := l.next.Update(prev, next); err != nil {
		return err
	}

	if next.IsNull() {
		if err := l.tail.Set(prev, false); err != nil {
			return err
		}
	} else if err := l.prev.Update(next, prev); err != nil {
		return err
	}

	if err := l.next.Delete(id); err != nil {
		return err
	}
	if err := l.prev.Delete(id); err != nil {
		return err
	}
	return l.setCount(-1)
}

// Pop removes and returns the head.
func (l *List) Pop() (identity.ID, error) {
	head, err := l.head.Get()
	if err != nil {
		return identity.Null, err
	}
	if head.IsNull() {
		return identity.Null, errors.New("list is empty")
	}
	if err := l.Remove(head); err != nil {
		return identity.Null, err
	}
	return head, nil
}

// Iter walks the list from the head, stopping at the first callback error.
func (l *List) Iter(callback func(identity.ID) error) error {
	ptr, err := l.head.Get()
	if err != nil {
		return err
	}
	for !ptr.IsNull() {
		if err := callback(ptr); err != nil {
			return err
		}
		if ptr, err = l.next.Get(ptr); err != nil {
			return err
		}
	}
	return nil
}
