// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unbond

import (
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// Bucket holds assets that become withdrawable at MaturityEpoch.
type Bucket struct {
	MaturityEpoch uint64
	Assets        *balance.Balance
}

type buckets []*Bucket

func (b buckets) IsEmpty() bool {
	return len(b) == 0
}

// Queue keeps the unbonding buckets of every user, at most one per maturity epoch.
type Queue struct {
	queues *solidity.Mapping[identity.ID, buckets]
}

func New(sctx *solidity.Context, pos thor.Bytes32) *Queue {
	return &Queue{
		queues: solidity.NewMapping[identity.ID, buckets](sctx, pos),
	}
}

// Enqueue adds assets to the bucket maturing at maturityEpoch.
func (q *Queue) Enqueue(user identity.ID, assets *balance.Balance, maturityEpoch uint64) error {
	if assets.IsEmpty() {
		return nil
	}
	if err := identity.RequireNonNull(user); err != nil {
		return err
	}
	list, err := q.queues.Get(user)
	if err != nil {
		return errors.Wrap(err, "failed to get unbond queue")
	}
	existed := !list.IsEmpty()

	merged := false
	for _, b := range list {
		if b.MaturityEpoch == maturityEpoch {
			b.Assets.Merge(assets)
			merged = true
			break
		}
	}
	if !merged {
		list = append(list, &Bucket{MaturityEpoch: maturityEpoch, Assets: assets.Clone()})
	}
	if existed {
		return q.queues.Update(user, list)
	}
	return q.queues.Insert(user, list)
}

// Release removes every bucket matured at currentEpoch and returns their merged assets.
func (q *Queue) Release(user identity.ID, currentEpoch uint64) (*balance.Balance, error) {
	list, err := q.queues.Get(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unbond queue")
	}
	released := &balance.Balance{}
	if list.IsEmpty() {
		return released, nil
	}

	kept := make(buckets, 0, len(list))
	for _, b := range list {
		if b.MaturityEpoch <= currentEpoch {
			released.Merge(b.Assets)
		} else {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(list) {
		return released, nil
	}
	if err := q.queues.Update(user, kept); err != nil {
		return nil, err
	}
	return released, nil
}

// Buckets returns the pending buckets of user in enqueue order.
func (q *Queue) Buckets(user identity.ID) ([]*Bucket, error) {
	list, err := q.queues.Get(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unbond queue")
	}
	return list, nil
}
