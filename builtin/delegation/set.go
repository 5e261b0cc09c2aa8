// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"encoding/binary"

	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

type pairKey struct {
	owner  identity.ID
	member identity.ID
}

func (k pairKey) Bytes() []byte {
	return append(k.owner.Bytes(), k.member.Bytes()...)
}

type indexKey struct {
	owner identity.ID
	index uint64
}

func (k indexKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(k.owner.Bytes(), k.index)
}

// memberSet is an unordered set of ids per owner.
// Members are packed into 1-based positions, removal swaps the last member into the gap.
type memberSet struct {
	count     *solidity.Mapping[identity.ID, uint64]
	positions *solidity.Mapping[pairKey, uint64]
	members   *solidity.Mapping[indexKey, identity.ID]
}

func newMemberSet(sctx *solidity.Context, prefix string) *memberSet {
	return &memberSet{
		count:     solidity.NewMapping[identity.ID, uint64](sctx, thor.BytesToBytes32([]byte(prefix+"-count"))),
		positions: solidity.NewMapping[pairKey, uint64](sctx, thor.BytesToBytes32([]byte(prefix+"-positions"))),
		members:   solidity.NewMapping[indexKey, identity.ID](sctx, thor.BytesToBytes32([]byte(prefix+"-members"))),
	}
}

func (s *memberSet) contains(owner, member identity.ID) (bool, error) {
	return s.positions.Exists(pairKey{owner, member})
}

func (s *memberSet) len(owner identity.ID) (uint64, error) {
	return s.count.Get(owner)
}

// insert adds member, returning false if it is already present.
func (s *memberSet) insert(owner, member identity.ID) (bool, error) {
	pos, err := s.positions.Get(pairKey{owner, member})
	if err != nil || pos != 0 {
		return false, err
	}
	n, err := s.count.Get(owner)
	if err != nil {
		return false, err
	}
	n++
	if err := s.members.Insert(indexKey{owner, n}, member); err != nil {
		return false, err
	}
	if err := s.positions.Insert(pairKey{owner, member}, n); err != nil {
		return false, err
	}
	if n == 1 {
		return true, s.count.Insert(owner, n)
	}
	return true, s.count.Update(owner, n)
}

// remove deletes member, returning false if it was absent.
func (s *memberSet) remove(owner, member identity.ID) (bool, error) {
	pos, err := s.positions.Get(pairKey{owner, member})
	if err != nil || pos == 0 {
		return false, err
	}
	n, err := s.count.Get(owner)
	if err != nil {
		return false, err
	}
	if pos != n {
		last, err := s.members.Get(indexKey{owner, n})
		if err != nil {
			return false, err
		}
		if err := s.members.Update(indexKey{owner, pos}, last); err != nil {
			return false, err
		}
		if err := s.positions.Update(pairKey{owner, last}, pos); err != nil {
			return false, err
		}
	}
	if err := s.members.Delete(indexKey{owner, n}); err != nil {
		return false, err
	}
	if err := s.positions.Delete(pairKey{owner, member}); err != nil {
		return false, err
	}
	return true, s.count.Update(owner, n-1)
}

func (s *memberSet) list(owner identity.ID) ([]identity.ID, error) {
	n, err := s.count.Get(owner)
	if err != nil {
		return nil, err
	}
	out := make([]identity.ID, 0, n)
	for i := uint64(1); i <= n; i++ {
		id, err := s.members.Get(indexKey{owner, i})
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
