// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
)

const (
	callbackAddLiquidity    = "addLiquidity"
	callbackRemoveLiquidity = "removeLiquidity"
	callbackWithdraw        = "withdraw"
	callbackDelegateRewards = "delegateRewards"
)

// OnResult applies the result of a remote call. It must be invoked by the
// contract the call was sent to, and applies at most once per handle.
func (ls *LiquidStaking) OnResult(res remote.Result) error {
	p, err := ls.remote.Lookup(res.Handle)
	if err != nil {
		return err
	}
	if p == nil {
		return reverts.Newf(reverts.UnknownTarget, "unknown remote handle %d", res.Handle)
	}
	if p.Target != ls.env.Caller() {
		return reverts.New(reverts.Unauthorized, "result from a contract other than the callee")
	}
	amount := res.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	outcome := "ok"
	if !res.OK {
		outcome = "failed"
	}
	logger.Debug("remote result", "handle", res.Handle, "callback", p.Callback, "ok", res.OK, "amount", amount)

	err = ls.atomic(func() error {
		if _, err := ls.remote.Resolve(res.Handle); err != nil {
			return err
		}
		switch p.Callback {
		case callbackAddLiquidity:
			return ls.addLiquidityResult(p, res.OK)
		case callbackRemoveLiquidity:
			return ls.removeLiquidityResult(p, res.OK)
		case callbackWithdraw:
			return ls.withdrawResult(p, res.OK, amount)
		case callbackDelegateRewards:
			return ls.delegateRewardsResult(p, res.OK)
		}
		return errors.Errorf("unknown callback %q", p.Callback)
	})
	if err != nil {
		return err
	}
	metricCallbacks().AddWithLabel(1, map[string]string{"callback": p.Callback, "outcome": outcome})
	return nil
}

func (ls *LiquidStaking) addLiquidityResult(p *remote.Pending, ok bool) error {
	if !ok {
		ls.pay(p.Caller, balance.Base(p.Value))
		ls.emit("AddLiquidityFailed", p.Caller, map[string]string{"target": p.Target.String(), "amount": p.Value.String()})
		return ls.demote(p.Target)
	}
	if err := ls.directory.AddStaked(p.Target, p.Value); err != nil {
		return err
	}
	shares, err := ls.pool.add(p.Value)
	if err != nil {
		return err
	}
	ls.pay(p.Caller, balance.NewPayment(balance.Token(LsToken), shares))
	ls.emit("AddLiquidity", p.Caller, map[string]string{"target": p.Target.String(), "amount": p.Value.String(), "shares": shares.String()})
	return nil
}

func (ls *LiquidStaking) removeLiquidityResult(p *remote.Pending, ok bool) error {
	shares := new(big.Int)
	if err := rlp.DecodeBytes(p.Data, shares); err != nil {
		return errors.Wrap(err, "decode shares")
	}
	if !ok {
		ls.pay(p.Caller, balance.NewPayment(balance.Token(LsToken), shares))
		ls.emit("RemoveLiquidityFailed", p.Caller, map[string]string{"target": p.Target.String(), "shares": shares.String()})
		return ls.demote(p.Target)
	}
	if err := ls.pool.remove(shares, p.Value); err != nil {
		return err
	}
	if err := ls.directory.MoveToUnstaked(p.Target, p.Value); err != nil {
		return err
	}
	id, err := ls.mintPosition(p.Caller, p.Target, p.Value)
	if err != nil {
		return err
	}
	metricPositions().AddWithLabel(1, map[string]string{"event": "minted"})
	ls.emit("RemoveLiquidity", p.Caller, map[string]string{
		"target":   p.Target.String(),
		"shares":   shares.String(),
		"value":    p.Value.String(),
		"position": PositionAsset(uint64(id)).String(),
	})
	return nil
}

func (ls *LiquidStaking) withdrawResult(p *remote.Pending, ok bool, amount *big.Int) error {
	var n uint64
	if err := rlp.DecodeBytes(p.Data, &n); err != nil {
		return errors.Wrap(err, "decode position")
	}
	id := positionID(n)
	token := balance.NewPayment(PositionAsset(n), big.NewInt(1))
	if !ok {
		ls.pay(p.Caller, token)
		return nil
	}
	if amount.Sign() > 0 {
		if err := ls.directory.AddUnbonded(p.Target, amount); err != nil {
			return err
		}
		if err := ls.totalWithdrawn.Add(amount); err != nil {
			return err
		}
		if err := ls.nativeBalance.Add(amount); err != nil {
			return err
		}
		ls.emit("Withdrawn", p.Target, map[string]string{"amount": amount.String()})
	}

	pos, err := ls.position(id)
	if err != nil {
		return err
	}
	entry, err := ls.directory.Get(pos.Contract)
	if err != nil {
		return err
	}
	if entry != nil && entry.UnbondedFromLedger.Cmp(pos.Amount) >= 0 {
		return ls.settle(id, pos, p.Caller)
	}
	ls.pay(p.Caller, token)
	return nil
}

func (ls *LiquidStaking) delegateRewardsResult(p *remote.Pending, ok bool) error {
	if !ok {
		if err := ls.cycle.RestoreRewards(p.Value); err != nil {
			return err
		}
		if err := ls.nativeBalance.Add(p.Value); err != nil {
			return err
		}
		ls.emit("DelegateRewardsFailed", p.Target, map[string]string{"amount": p.Value.String()})
		return ls.demote(p.Target)
	}
	if err := ls.directory.AddStaked(p.Target, p.Value); err != nil {
		return err
	}
	if err := ls.pool.grow(p.Value); err != nil {
		return err
	}
	if err := ls.cycle.MarkRedelegated(); err != nil {
		return err
	}
	ls.emit("DelegateRewards", p.Target, map[string]string{"amount": p.Value.String()})
	return nil
}
