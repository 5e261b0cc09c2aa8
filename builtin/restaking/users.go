// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/delegation"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/unbond"
	"github.com/vechain/restake/thor"
)

func requireNonEmpty(payments []balance.Payment, what string) error {
	if len(payments) == 0 {
		return reverts.Newf(reverts.InvalidArgument, "no %s", what)
	}
	return nil
}

func requirePositive(payments []balance.Payment, action string) error {
	for _, p := range payments {
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			return reverts.Newf(reverts.ZeroAmount, "can't %s 0 %v", action, p.Asset)
		}
	}
	return nil
}

func (r *Restaking) requireWhitelisted(payments []balance.Payment) error {
	for _, p := range payments {
		if err := r.table.RequireWhitelisted(p.Asset.Token); err != nil {
			return err
		}
	}
	return nil
}

// Deposit credits the attached payments to the caller.
func (r *Restaking) Deposit() error {
	payments := r.env.PayIn()
	if err := requireNonEmpty(payments, "payments"); err != nil {
		return err
	}
	if err := requirePositive(payments, "deposit"); err != nil {
		return err
	}
	if err := r.requireWhitelisted(payments); err != nil {
		return err
	}
	return r.atomic(func() error {
		id, err := r.users.IDOfOrInsert(r.env.Caller())
		if err != nil {
			return err
		}
		if err := r.ledger.Credit(id, payments...); err != nil {
			return err
		}
		r.emit("Deposit", r.env.Caller(), map[string]string{"payments": formatPayments(payments)})
		return nil
	})
}

// payOut sends the base asset and the tokens as separate transfers.
func (r *Restaking) payOut(to thor.Address, assets *balance.Balance) {
	base, tokens := assets.Split()
	if base != nil {
		r.env.Transfer(r.addr, to, *base)
	}
	r.env.Transfer(r.addr, to, tokens...)
}

// Withdraw pays tokens from the caller's balance back to the caller.
func (r *Restaking) Withdraw(tokens []balance.Payment) error {
	if err := requireNonEmpty(tokens, "tokens"); err != nil {
		return err
	}
	if err := requirePositive(tokens, "withdraw"); err != nil {
		return err
	}
	id, err := r.users.IDNonNull(r.env.Caller())
	if err != nil {
		return err
	}
	out, err := balance.New(tokens...)
	if err != nil {
		return err
	}
	if err := r.ledger.Debit(id, tokens...); err != nil {
		return err
	}
	r.payOut(r.env.Caller(), out)
	r.emit("Withdraw", r.env.Caller(), map[string]string{"payments": formatPayments(out.List())})
	return nil
}

// WithdrawAll pays the whole balance of the caller back.
func (r *Restaking) WithdrawAll() error {
	id, err := r.users.IDNonNull(r.env.Caller())
	if err != nil {
		return err
	}
	out, err := r.ledger.Take(id)
	if err != nil {
		return err
	}
	if out.IsEmpty() {
		return reverts.New(reverts.InsufficientBalance, "nothing to withdraw")
	}
	r.payOut(r.env.Caller(), out)
	r.emit("Withdraw", r.env.Caller(), map[string]string{"payments": formatPayments(out.List())})
	return nil
}

// delegate moves tokens from the caller's balance into svc under target.
func (r *Restaking) delegate(svc *delegation.Service, target identity.ID, tokens []balance.Payment, maxTotal *big.Int) error {
	if err := requireNonEmpty(tokens, "tokens"); err != nil {
		return err
	}
	if err := requirePositive(tokens, "delegate"); err != nil {
		return err
	}
	// the token may have been delisted since it was deposited
	if err := r.requireWhitelisted(tokens); err != nil {
		return err
	}
	user, err := r.users.IDNonNull(r.env.Caller())
	if err != nil {
		return err
	}
	total, err := r.table.ValueOfAll(tokens)
	if err != nil {
		return err
	}
	return r.atomic(func() error {
		if err := r.ledger.Debit(user, tokens...); err != nil {
			return err
		}
		return svc.AddDelegation(target, user, tokens, total, maxTotal)
	})
}

// revoke takes tokens back from svc and puts them into the caller's unbond queue.
func (r *Restaking) revoke(svc *delegation.Service, target identity.ID, tokens []balance.Payment) (*balance.Balance, error) {
	if err := requireNonEmpty(tokens, "tokens"); err != nil {
		return nil, err
	}
	user, err := r.users.IDNonNull(r.env.Caller())
	if err != nil {
		return nil, err
	}
	var removed *balance.Balance
	err = r.atomic(func() error {
		if removed, err = svc.RemoveDelegation(target, user, tokens); err != nil {
			return err
		}
		maturity := r.env.BlockContext().Epoch + r.UnbondEpochs()
		return r.unbonds.Enqueue(user, removed, maturity)
	})
	return removed, err
}

func (r *Restaking) DelegateToValidator(validator thor.Address, tokens []balance.Payment) error {
	id, cfg, err := r.validatorOf(validator)
	if err != nil {
		return err
	}
	if err := r.delegate(r.validatorDelegation, id, tokens, cfg.Cap()); err != nil {
		return err
	}
	r.emit("DelegateValidator", r.env.Caller(), map[string]string{"validator": validator.String(), "payments": formatPayments(tokens)})
	return nil
}

func (r *Restaking) DelegateForSovereign(name string, tokens []balance.Payment) error {
	id, info, err := r.sovereignByName(name)
	if err != nil {
		return err
	}
	if err := r.delegate(r.sovereignDelegation, id, tokens, info.Cap()); err != nil {
		return err
	}
	r.emit("DelegateSovereign", r.env.Caller(), map[string]string{"sovereign": name, "payments": formatPayments(tokens)})
	return nil
}

func (r *Restaking) RevokeFromValidator(validator thor.Address, tokens []balance.Payment) error {
	id, err := r.validators.IDNonNull(validator)
	if err != nil {
		return err
	}
	removed, err := r.revoke(r.validatorDelegation, id, tokens)
	if err != nil {
		return err
	}
	r.emit("RevokeValidator", r.env.Caller(), map[string]string{"validator": validator.String(), "payments": formatPayments(removed.List())})
	return nil
}

func (r *Restaking) RevokeFromSovereign(name string, tokens []balance.Payment) error {
	id, _, err := r.sovereignByName(name)
	if err != nil {
		return err
	}
	removed, err := r.revoke(r.sovereignDelegation, id, tokens)
	if err != nil {
		return err
	}
	r.emit("RevokeSovereign", r.env.Caller(), map[string]string{"sovereign": name, "payments": formatPayments(removed.List())})
	return nil
}

func (r *Restaking) release() (*balance.Balance, identity.ID, error) {
	user, err := r.users.IDNonNull(r.env.Caller())
	if err != nil {
		return nil, identity.Null, err
	}
	released, err := r.unbonds.Release(user, r.env.BlockContext().Epoch)
	if err != nil {
		return nil, identity.Null, err
	}
	return released, user, nil
}

// UnbondToCaller pays every matured unbond bucket of the caller out.
// Nothing matured is not an error.
func (r *Restaking) UnbondToCaller() (*balance.Balance, error) {
	released, _, err := r.release()
	if err != nil {
		return nil, err
	}
	if released.IsEmpty() {
		return released, nil
	}
	r.payOut(r.env.Caller(), released)
	r.emit("UnbondToCaller", r.env.Caller(), map[string]string{"payments": formatPayments(released.List())})
	return released, nil
}

// UnbondToLedger moves every matured unbond bucket of the caller back to the caller's balance.
func (r *Restaking) UnbondToLedger() (*balance.Balance, error) {
	released, user, err := r.release()
	if err != nil {
		return nil, err
	}
	if released.IsEmpty() {
		return released, nil
	}
	if err := r.ledger.CreditBalance(user, released); err != nil {
		return nil, err
	}
	r.emit("UnbondToLedger", r.env.Caller(), map[string]string{"payments": formatPayments(released.List())})
	return released, nil
}

//
// Views
//

// UserTokens returns the deposited balance of user, empty if unknown.
func (r *Restaking) UserTokens(user thor.Address) (*balance.Balance, error) {
	id, err := r.users.IDOf(user)
	if err != nil || id.IsNull() {
		return &balance.Balance{}, err
	}
	return r.ledger.Get(id)
}

func (r *Restaking) UnbondBuckets(user thor.Address) ([]*unbond.Bucket, error) {
	id, err := r.users.IDOf(user)
	if err != nil || id.IsNull() {
		return nil, err
	}
	return r.unbonds.Buckets(id)
}
