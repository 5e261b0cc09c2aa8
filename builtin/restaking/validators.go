// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/thor"
)

// ValidatorConfig is the public profile of a validator.
// MaxDelegation only applies when Capped is set.
type ValidatorConfig struct {
	Name          string
	Fee           uint64
	Capped        bool
	MaxDelegation *big.Int
}

// Cap returns the delegation cap, nil if uncapped.
func (c *ValidatorConfig) Cap() *big.Int {
	if !c.Capped {
		return nil
	}
	return new(big.Int).Set(c.MaxDelegation)
}

func requireName(name string) error {
	if name == "" {
		return reverts.New(reverts.InvalidArgument, "empty name")
	}
	return nil
}

func (r *Restaking) validatorOf(addr thor.Address) (identity.ID, *ValidatorConfig, error) {
	id, err := r.validators.IDNonNull(addr)
	if err != nil {
		return identity.Null, nil, err
	}
	cfg, err := r.validatorConfigs.Get(id)
	if err != nil {
		return identity.Null, nil, errors.Wrap(err, "failed to get validator config")
	}
	if cfg == nil {
		return identity.Null, nil, reverts.Newf(reverts.UnknownAddress, "validator %v has no config", addr)
	}
	return id, cfg, nil
}

// RegisterValidator registers the caller as a validator under a unique name.
func (r *Restaking) RegisterValidator(name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	return r.atomic(func() error {
		id, err := r.validators.InsertNew(r.env.Caller())
		if err != nil {
			return err
		}
		taken, err := r.validatorNames.Exists(nameKey(name))
		if err != nil {
			return err
		}
		if taken {
			return reverts.Newf(reverts.AlreadyWhitelisted, "name %q already taken", name)
		}
		if err := r.validatorConfigs.Insert(id, &ValidatorConfig{Name: name, MaxDelegation: new(big.Int)}); err != nil {
			return err
		}
		if err := r.validatorNames.Insert(nameKey(name), id); err != nil {
			return err
		}
		logger.Info("validator registered", "validator", r.env.Caller(), "name", name)
		r.emit("ValidatorRegistered", r.env.Caller(), map[string]string{"name": name})
		return nil
	})
}

// SetFee sets the caller's fee in basis points.
func (r *Restaking) SetFee(fee uint64) error {
	if fee > thor.MaxFee {
		return reverts.Newf(reverts.InvalidArgument, "invalid fee %d", fee)
	}
	id, cfg, err := r.validatorOf(r.env.Caller())
	if err != nil {
		return err
	}
	cfg.Fee = fee
	if err := r.validatorConfigs.Update(id, cfg); err != nil {
		return err
	}
	r.emit("ValidatorFeeSet", r.env.Caller(), map[string]string{"fee": strconv.FormatUint(fee, 10)})
	return nil
}

// SetMaxDelegation caps what may be delegated to the caller. The cap can't go
// below what is already delegated.
func (r *Restaking) SetMaxDelegation(maxTotal *big.Int) error {
	if maxTotal == nil || maxTotal.Sign() < 0 {
		return reverts.New(reverts.InvalidArgument, "invalid max delegation")
	}
	id, cfg, err := r.validatorOf(r.env.Caller())
	if err != nil {
		return err
	}
	if err := r.validatorDelegation.RequireCapAtLeastTotal(id, maxTotal); err != nil {
		return err
	}
	cfg.Capped = true
	cfg.MaxDelegation = new(big.Int).Set(maxTotal)
	if err := r.validatorConfigs.Update(id, cfg); err != nil {
		return err
	}
	r.emit("ValidatorMaxDelegationSet", r.env.Caller(), map[string]string{"max": maxTotal.String()})
	return nil
}

// AddOwnDelegation delegates the attached payments from the validator to itself.
func (r *Restaking) AddOwnDelegation() error {
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
	id, cfg, err := r.validatorOf(r.env.Caller())
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
		if err := r.validatorDelegation.AddDelegation(id, user, payments, total, cfg.Cap()); err != nil {
			return err
		}
		r.emit("ValidatorOwnDelegation", r.env.Caller(), map[string]string{"payments": formatPayments(payments)})
		return nil
	})
}

// ValidatorConfig returns the config of validator.
func (r *Restaking) ValidatorConfig(validator thor.Address) (*ValidatorConfig, error) {
	_, cfg, err := r.validatorOf(validator)
	return cfg, err
}

// TotalDelegated returns the value delegated to validator.
func (r *Restaking) TotalDelegated(validator thor.Address) (*big.Int, error) {
	id, err := r.validators.IDNonNull(validator)
	if err != nil {
		return nil, err
	}
	return r.validatorDelegation.TotalDelegated(id)
}

// DelegatedBy returns the assets user delegated to validator.
func (r *Restaking) DelegatedBy(user, validator thor.Address) (*balance.Balance, error) {
	vid, err := r.validators.IDNonNull(validator)
	if err != nil {
		return nil, err
	}
	uid, err := r.users.IDOf(user)
	if err != nil || uid.IsNull() {
		return &balance.Balance{}, err
	}
	return r.validatorDelegation.DelegatedBy(uid, vid)
}

// Delegators lists the addresses delegating to validator.
func (r *Restaking) Delegators(validator thor.Address) ([]thor.Address, error) {
	id, err := r.validators.IDNonNull(validator)
	if err != nil {
		return nil, err
	}
	ids, err := r.validatorDelegation.Delegators(id)
	if err != nil {
		return nil, err
	}
	return r.userAddresses(ids)
}

func (r *Restaking) userAddresses(ids []identity.ID) ([]thor.Address, error) {
	out := make([]thor.Address, 0, len(ids))
	for _, id := range ids {
		addr, ok, err := r.users.AddressOf(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, addr)
		}
	}
	return out, nil
}
