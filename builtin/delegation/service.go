// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// Pricer values an amount of an asset in base units.
type Pricer interface {
	ValueOf(asset balance.AssetKey, amount *big.Int) (*big.Int, error)
}

// Service books delegations of users to one kind of target.
// For every target, the total equals the sum of its edges, and the delegator
// set holds exactly the delegators with a non-zero edge.
type Service struct {
	pricer     Pricer
	totals     *solidity.Mapping[identity.ID, *big.Int]
	edges      *solidity.Mapping[pairKey, *big.Int]
	records    *solidity.Mapping[pairKey, *balance.Balance]
	delegators *memberSet
}

// New creates a service whose slots are derived from prefix.
func New(sctx *solidity.Context, prefix string, pricer Pricer) *Service {
	slot := func(name string) thor.Bytes32 {
		return thor.BytesToBytes32([]byte(prefix + "-" + name))
	}
	return &Service{
		pricer:     pricer,
		totals:     solidity.NewMapping[identity.ID, *big.Int](sctx, slot("totals")),
		edges:      solidity.NewMapping[pairKey, *big.Int](sctx, slot("edges")),
		records:    solidity.NewMapping[pairKey, *balance.Balance](sctx, slot("records")),
		delegators: newMemberSet(sctx, prefix+"-delegators"),
	}
}

func edgeKey(delegator, target identity.ID) pairKey {
	return pairKey{owner: target, member: delegator}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// AddDelegation books assets worth totalValue from delegator to target.
// A nil maxTotal means the target is uncapped.
func (s *Service) AddDelegation(target, delegator identity.ID, assets []balance.Payment, totalValue, maxTotal *big.Int) error {
	if err := identity.RequireNonNull(target); err != nil {
		return err
	}
	if err := identity.RequireNonNull(delegator); err != nil {
		return err
	}
	if totalValue == nil || totalValue.Sign() < 0 {
		return reverts.New(reverts.InvalidArgument, "invalid delegation value")
	}

	total, err := s.TotalDelegated(target)
	if err != nil {
		return err
	}
	newTotal := new(big.Int).Add(total, totalValue)
	if maxTotal != nil && newTotal.Cmp(maxTotal) > 0 {
		return reverts.Newf(reverts.CapExceeded, "delegation cap exceeded: %v > %v", newTotal, maxTotal)
	}

	key := edgeKey(delegator, target)
	if totalValue.Sign() > 0 {
		if err := s.totals.Upsert(target, newTotal); err != nil {
			return errors.Wrap(err, "failed to set total")
		}
		edge, err := s.Edge(delegator, target)
		if err != nil {
			return err
		}
		if err := s.edges.Upsert(key, new(big.Int).Add(edge, totalValue)); err != nil {
			return errors.Wrap(err, "failed to set edge")
		}
		if _, err := s.delegators.insert(target, delegator); err != nil {
			return errors.Wrap(err, "failed to insert delegator")
		}
	}

	record, err := s.DelegatedBy(delegator, target)
	if err != nil {
		return err
	}
	merged := record.Clone()
	for _, p := range assets {
		if err := merged.Add(p); err != nil {
			return err
		}
	}
	if record.IsEmpty() {
		return s.records.Insert(key, merged)
	}
	return s.records.Update(key, merged)
}

// RemoveDelegation takes back assets from the delegation of delegator to target.
// The revoked value is computed at current prices. When it is larger than what
// is left on the edge, only the edge is removed. When the record is emptied,
// any residual edge is dropped as well.
func (s *Service) RemoveDelegation(target, delegator identity.ID, assets []balance.Payment) (*balance.Balance, error) {
	key := edgeKey(delegator, target)
	record, err := s.DelegatedBy(delegator, target)
	if err != nil {
		return nil, err
	}
	if record.IsEmpty() {
		return nil, reverts.New(reverts.NothingDelegated, "nothing delegated")
	}

	next := record.Clone()
	removed := &balance.Balance{}
	value := new(big.Int)
	for _, p := range assets {
		if p.Amount == nil || p.Amount.Sign() == 0 {
			return nil, reverts.New(reverts.ZeroAmount, "can't revoke 0")
		}
		if err := next.Deduct(p); err != nil {
			if reverts.Is(err, reverts.InsufficientBalance) {
				return nil, reverts.Newf(reverts.OverRevoke, "trying to revoke too many %v", p.Asset)
			}
			return nil, err
		}
		v, err := s.pricer.ValueOf(p.Asset, p.Amount)
		if err != nil {
			return nil, err
		}
		value.Add(value, v)
		if err := removed.Add(p); err != nil {
			return nil, err
		}
	}

	edge, err := s.Edge(delegator, target)
	if err != nil {
		return nil, err
	}
	dec := value
	if dec.Cmp(edge) > 0 || next.IsEmpty() {
		dec = edge
	}
	if dec.Sign() > 0 {
		total, err := s.TotalDelegated(target)
		if err != nil {
			return nil, err
		}
		if total.Cmp(dec) < 0 {
			return nil, errors.Errorf("total %v below edge %v", total, dec)
		}
		if err := s.totals.Update(target, total.Sub(total, dec)); err != nil {
			return nil, errors.Wrap(err, "failed to set total")
		}
		newEdge := new(big.Int).Sub(edge, dec)
		if err := s.edges.Update(key, newEdge); err != nil {
			return nil, errors.Wrap(err, "failed to set edge")
		}
		if newEdge.Sign() == 0 {
			if _, err := s.delegators.remove(target, delegator); err != nil {
				return nil, errors.Wrap(err, "failed to remove delegator")
			}
		}
	}

	if err := s.records.Update(key, next); err != nil {
		return nil, err
	}
	return removed, nil
}

// RequireCapAtLeastTotal fails if maxTotal is below what target already holds.
func (s *Service) RequireCapAtLeastTotal(target identity.ID, maxTotal *big.Int) error {
	if maxTotal == nil {
		return nil
	}
	total, err := s.TotalDelegated(target)
	if err != nil {
		return err
	}
	if maxTotal.Cmp(total) < 0 {
		return reverts.Newf(reverts.CapBelowCurrent, "cap %v below current delegation %v", maxTotal, total)
	}
	return nil
}

func (s *Service) TotalDelegated(target identity.ID) (*big.Int, error) {
	v, err := s.totals.Get(target)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get total")
	}
	return orZero(v), nil
}

func (s *Service) Edge(delegator, target identity.ID) (*big.Int, error) {
	v, err := s.edges.Get(edgeKey(delegator, target))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get edge")
	}
	return orZero(v), nil
}

// DelegatedBy returns the assets delegator holds at target, never nil.
func (s *Service) DelegatedBy(delegator, target identity.ID) (*balance.Balance, error) {
	b, err := s.records.Get(edgeKey(delegator, target))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delegated assets")
	}
	if b == nil {
		b = &balance.Balance{}
	}
	return b, nil
}

func (s *Service) Delegators(target identity.ID) ([]identity.ID, error) {
	return s.delegators.list(target)
}

func (s *Service) IsDelegator(target, delegator identity.ID) (bool, error) {
	return s.delegators.contains(target, delegator)
}

func (s *Service) DelegatorCount(target identity.ID) (uint64, error) {
	return s.delegators.len(target)
}
