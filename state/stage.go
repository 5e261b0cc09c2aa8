// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Stage abstracts the changes of a state pending commit.
type Stage struct {
	state   *State
	changes map[storageKey]rlp.RawValue
	order   []storageKey
}

// Len returns the number of changed storage slots.
func (st *Stage) Len() int {
	return len(st.order)
}

// Commit writes all changes into the kv store atomically, and starts a fresh journal.
func (st *Stage) Commit() error {
	bulk := st.state.db.Bulk()
	for _, k := range st.order {
		v := st.changes[k]
		if len(v) == 0 {
			if err := bulk.Delete(k.bytes()); err != nil {
				return errors.Wrap(err, "delete storage")
			}
		} else {
			if err := bulk.Put(k.bytes(), v); err != nil {
				return errors.Wrap(err, "put storage")
			}
		}
	}
	if err := bulk.Write(); err != nil {
		return &Error{err}
	}

	if c := st.state.cache; c != nil {
		for _, k := range st.order {
			if v := st.changes[k]; len(v) == 0 {
				c.Del(k.bytes())
			} else {
				_ = c.Set(k.bytes(), v)
			}
		}
	}
	metricCommittedSlots().Add(int64(len(st.order)))
	st.state.logCacheStats()
	st.state.reset()
	return nil
}
