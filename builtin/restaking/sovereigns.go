// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/thor"
)

type SovereignInfo struct {
	Name            string
	Description     string
	Capped          bool
	MaxRestakingCap *big.Int
}

// Cap returns the restaking cap, nil if uncapped.
func (s *SovereignInfo) Cap() *big.Int {
	if !s.Capped {
		return nil
	}
	return new(big.Int).Set(s.MaxRestakingCap)
}

func (r *Restaking) sovereignInfo(id identity.ID) (*SovereignInfo, error) {
	info, err := r.sovereignInfos.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sovereign info")
	}
	if info == nil {
		return nil, reverts.Newf(reverts.UnknownTarget, "sovereign %v has no info", id)
	}
	return info, nil
}

func (r *Restaking) sovereignByName(name string) (identity.ID, *SovereignInfo, error) {
	id, err := r.sovereignNames.Get(nameKey(name))
	if err != nil {
		return identity.Null, nil, err
	}
	if id.IsNull() {
		return identity.Null, nil, reverts.Newf(reverts.UnknownTarget, "unknown sovereign chain %q", name)
	}
	info, err := r.sovereignInfo(id)
	if err != nil {
		return identity.Null, nil, err
	}
	return id, info, nil
}

// RegisterSovereign registers the caller as a sovereign chain under a unique name.
func (r *Restaking) RegisterSovereign(name, description string) error {
	if err := requireName(name); err != nil {
		return err
	}
	return r.atomic(func() error {
		id, err := r.sovereigns.InsertNew(r.env.Caller())
		if err != nil {
			return err
		}
		taken, err := r.sovereignNames.Exists(nameKey(name))
		if err != nil {
			return err
		}
		if taken {
			return reverts.Newf(reverts.AlreadyWhitelisted, "name %q already taken", name)
		}
		info := &SovereignInfo{Name: name, Description: description, MaxRestakingCap: new(big.Int)}
		if err := r.sovereignInfos.Insert(id, info); err != nil {
			return err
		}
		if err := r.sovereignNames.Insert(nameKey(name), id); err != nil {
			return err
		}
		logger.Info("sovereign registered", "sovereign", r.env.Caller(), "name", name)
		r.emit("SovereignRegistered", r.env.Caller(), map[string]string{"name": name, "description": description})
		return nil
	})
}

// UnregisterSovereign removes the caller's sovereign chain and frees its name.
// Booked delegations are left untouched.
func (r *Restaking) UnregisterSovereign() error {
	return r.atomic(func() error {
		id, err := r.sovereigns.Remove(r.env.Caller())
		if err != nil {
			return err
		}
		if id.IsNull() {
			return reverts.New(reverts.UnknownAddress, "unknown sovereign chain")
		}
		info, err := r.sovereignInfo(id)
		if err != nil {
			return err
		}
		if err := r.sovereignInfos.Delete(id); err != nil {
			return err
		}
		if err := r.sovereignNames.Delete(nameKey(info.Name)); err != nil {
			return err
		}
		r.emit("SovereignUnregistered", r.env.Caller(), map[string]string{"name": info.Name})
		return nil
	})
}

// SetMaxRestakingCap caps what may be restaked for the caller's chain.
func (r *Restaking) SetMaxRestakingCap(maxTotal *big.Int) error {
	if maxTotal == nil || maxTotal.Sign() < 0 {
		return reverts.New(reverts.InvalidArgument, "invalid restaking cap")
	}
	id, err := r.sovereigns.IDNonNull(r.env.Caller())
	if err != nil {
		return err
	}
	info, err := r.sovereignInfo(id)
	if err != nil {
		return err
	}
	if err := r.sovereignDelegation.RequireCapAtLeastTotal(id, maxTotal); err != nil {
		return err
	}
	info.Capped = true
	info.MaxRestakingCap = new(big.Int).Set(maxTotal)
	if err := r.sovereignInfos.Update(id, info); err != nil {
		return err
	}
	r.emit("SovereignMaxRestakingCapSet", r.env.Caller(), map[string]string{"max": maxTotal.String()})
	return nil
}

// AddOwnSecurityFunds delegates the attached payments from the sovereign chain to itself.
func (r *Restaking) AddOwnSecurityFunds() error {
	payments := r.env.PayIn()
	if err := requireNonEmpty(payments, "payments"); err != nil {
		return err
	}
	if err := requirePositive(payments, "delegate"); err != nil {
		return err
	}
	if err := r.requireWhitelisted(payments); err != nil {
		return err
	}
	id, err := r.sovereigns.IDNonNull(r.env.Caller())
	if err != nil {
		return err
	}
	info, err := r.sovereignInfo(id)
	if err != nil {
		return err
	}
	total, err := r.table.ValueOfAll(payments)
	if err != nil {
		return err
	}
	return r.atomic(func() error {
		user, err := r.users.IDOfOrInsert(r.env.Caller())
		if err != nil {
			return err
		}
		if err := r.sovereignDelegation.AddDelegation(id, user, payments, total, info.Cap()); err != nil {
			return err
		}
		r.emit("SovereignOwnSecurityFunds", r.env.Caller(), map[string]string{"payments": formatPayments(payments)})
		return nil
	})
}

func (r *Restaking) SovereignInfo(sovereign thor.Address) (*SovereignInfo, error) {
	id, err := r.sovereigns.IDNonNull(sovereign)
	if err != nil {
		return nil, err
	}
	return r.sovereignInfo(id)
}

// SovereignTotal returns the value restaked for the named chain.
func (r *Restaking) SovereignTotal(name string) (*big.Int, error) {
	id, _, err := r.sovereignByName(name)
	if err != nil {
		return nil, err
	}
	return r.sovereignDelegation.TotalDelegated(id)
}

// SovereignDelegatedBy returns the assets user restaked for the named chain.
func (r *Restaking) SovereignDelegatedBy(user thor.Address, name string) (*balance.Balance, error) {
	sid, _, err := r.sovereignByName(name)
	if err != nil {
		return nil, err
	}
	uid, err := r.users.IDOf(user)
	if err != nil || uid.IsNull() {
		return &balance.Balance{}, err
	}
	return r.sovereignDelegation.DelegatedBy(uid, sid)
}
