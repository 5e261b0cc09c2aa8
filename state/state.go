// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/qianbin/directcache"

	"github.com/vechain/restake/cache"
	"github.com/vechain/restake/kv"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/stackedmap"
	"github.com/vechain/restake/thor"
)

// StorageBucket is the kv bucket holding committed contract storage.
const StorageBucket = kv.Bucket("s")

var logger = log.WithContext("pkg", "state")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

func (k storageKey) bytes() []byte {
	return append(k.addr.Bytes(), k.key.Bytes()...)
}

// State manages contract storage of built-in contracts.
// Changes are journaled in memory until staged and committed into the kv store.
type State struct {
	db    kv.Store
	cache *directcache.Cache // committed storage values, nil if disabled
	stats cache.Stats
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object backed by the given store.
// cacheMB is the size of committed values cache, 0 disables it.
func New(db kv.Store, cacheMB int) *State {
	s := &State{db: StorageBucket.NewStore(db)}
	if cacheMB > 0 {
		s.cache = directcache.New(cacheMB * 1024 * 1024)
	}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sm = stackedmap.New(s.committedGetter)
}

// committedGetter implements stackedmap.MapGetter.
func (s *State) committedGetter(k storageKey) (rlp.RawValue, bool, error) {
	key := k.bytes()
	if s.cache != nil {
		var val rlp.RawValue
		if s.cache.AdvGet(key, func(v []byte) { val = slices.Clone(v) }, false) {
			s.stats.Hit()
			metricStorageRead().AddWithLabel(1, map[string]string{"source": "cache"})
			return val, true, nil
		}
		s.stats.Miss()
	}

	val, err := s.db.Get(key)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}
	metricStorageRead().AddWithLabel(1, map[string]string{"source": "db"})
	if s.cache != nil {
		_ = s.cache.Set(key, val)
	}
	return val, true, nil
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw. Empty raw clears the slot.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return thor.Blake2b(raw), nil
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Stage collects all journaled changes, ready to be committed.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	var order []storageKey
	s.sm.Journal(func(k storageKey, v rlp.RawValue) bool {
		if _, ok := changes[k]; !ok {
			order = append(order, k)
		}
		changes[k] = v
		return true
	})
	return &Stage{state: s, changes: changes, order: order}
}

func (s *State) logCacheStats() {
	if s.cache == nil {
		return
	}
	if changed, hit, miss := s.stats.Stats(); changed {
		logger.Debug("storage cache stats", "hit", hit, "miss", miss)
	}
}
