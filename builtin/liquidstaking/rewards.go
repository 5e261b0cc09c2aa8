// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"
	"strconv"

	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/directory"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

// reserve is the native balance the ledger holds on its own account.
func (ls *LiquidStaking) reserve() (*big.Int, error) {
	bal, err := ls.nativeBalance.Get()
	if err != nil {
		return nil, err
	}
	withdrawn, err := ls.totalWithdrawn.Get()
	if err != nil {
		return nil, err
	}
	bal.Sub(bal, withdrawn)
	if bal.Sign() < 0 {
		bal.SetInt64(0)
	}
	return bal, nil
}

// ClaimRewards asks every whitelisted contract to pay its rewards, walking the
// directory as far as the compute budget allows. Call again to resume an
// interrupted claim.
func (ls *LiquidStaking) ClaimRewards() (claim.Completion, error) {
	if err := ls.requireActive(); err != nil {
		return claim.Interrupted, err
	}
	n, err := ls.directory.Len()
	if err != nil {
		return claim.Interrupted, err
	}
	if n == 0 {
		return claim.Interrupted, reverts.New(reverts.NoEligibleTarget, "no delegation contracts")
	}
	block := ls.env.BlockContext()
	if err := ls.cycle.Start(block.Epoch, ls.reserve, ls.directory.Head); err != nil {
		return claim.Interrupted, err
	}

	op, err := ls.cycle.Operation()
	if err != nil {
		return claim.Interrupted, err
	}

	steps := 0
	completion, err := ls.cycle.Sweep(ls.env.Charger(), func(id identity.ID) (identity.ID, error) {
		addr, e, err := ls.directory.At(id)
		if err != nil {
			return identity.Null, err
		}
		if e.ClaimedEpoch != op.LastClaimEpoch {
			if err := ls.remote.Notify(ls.env, addr); err != nil {
				return identity.Null, err
			}
			if err := ls.directory.MarkClaimed(id, op.LastClaimEpoch); err != nil {
				return identity.Null, err
			}
			steps++
		}
		return ls.directory.Next(id)
	}, ls.directory.Head, block.Number)
	if err != nil {
		return claim.Interrupted, err
	}

	metricClaimSteps().Add(int64(steps))
	metricClaimSweeps().AddWithLabel(1, map[string]string{"completion": completion.String()})
	logger.Debug("claim rewards swept", "epoch", block.Epoch, "steps", steps, "completion", completion)
	if completion == claim.Completed {
		ls.emit("ClaimRewards", ls.env.Caller(), map[string]string{"epoch": strconv.FormatUint(block.Epoch, 10)})
	}
	return completion, nil
}

// RecomputeTokenReserve books the rewards received since the claim started.
// It returns the rewards added to the reserve.
func (ls *LiquidStaking) RecomputeTokenReserve() (*big.Int, error) {
	if err := ls.requireActive(); err != nil {
		return nil, err
	}
	bal, err := ls.nativeBalance.Get()
	if err != nil {
		return nil, err
	}
	withdrawn, err := ls.totalWithdrawn.Get()
	if err != nil {
		return nil, err
	}
	added, err := ls.cycle.Recompute(ls.env.BlockContext().Number, bal, withdrawn)
	if err != nil {
		return nil, err
	}
	ls.emit("RecomputeTokenReserve", ls.env.Caller(), map[string]string{"added": added.String()})
	return added, nil
}

// DelegateRewards stakes the rewards reserve on the best delegation contract.
// The reserve raises the value of LS shares once the stake is confirmed.
func (ls *LiquidStaking) DelegateRewards() (handle remote.Handle, err error) {
	if err := ls.requireActive(); err != nil {
		return 0, err
	}
	err = ls.atomic(func() error {
		amount, err := ls.cycle.BeginDelegate()
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return reverts.New(reverts.PreconditionFailed, "no rewards to delegate")
		}
		target, err := ls.directory.SelectForStake(amount)
		if err != nil {
			return err
		}
		if err := ls.nativeBalance.Sub(amount); err != nil {
			return reverts.Newf(reverts.PreconditionFailed, "balance: %v", err)
		}
		handle, err = ls.remote.Request(ls.env, xenv.CallStake, target, amount, callbackDelegateRewards, nil)
		if err != nil {
			return err
		}
		logger.Info("rewards delegation requested", "target", target, "amount", amount)
		return nil
	})
	return handle, err
}

// ReceiveRewards credits rewards paid in by a whitelisted contract.
func (ls *LiquidStaking) ReceiveRewards() error {
	entry, err := ls.directory.Get(ls.env.Caller())
	if err != nil {
		return err
	}
	if entry == nil {
		return reverts.New(reverts.Unauthorized, "rewards from a contract not whitelisted")
	}
	p, err := ls.singlePayIn()
	if err != nil {
		return err
	}
	if !p.Asset.IsBase() {
		return reverts.Newf(reverts.InvalidArgument, "rewards paid in %v", p.Asset)
	}
	if err := ls.nativeBalance.Add(p.Amount); err != nil {
		return err
	}
	metricRewards().Add(1)
	ls.emit("RewardsReceived", ls.env.Caller(), map[string]string{"amount": p.Amount.String()})
	return nil
}

func (ls *LiquidStaking) ClaimStatus() (*claim.Status, error) {
	return ls.cycle.Status()
}

// ClaimOperation returns the claim in progress, phase None when idle.
func (ls *LiquidStaking) ClaimOperation() (*claim.Status, error) {
	return ls.cycle.Operation()
}

// Contract is a whitelisted delegation contract with its ledger bookkeeping.
type Contract struct {
	Address thor.Address
	*directory.Entry
}

// Directory lists the whitelisted contracts, highest yield first.
func (ls *LiquidStaking) Directory() ([]Contract, error) {
	var contracts []Contract
	err := ls.directory.Iter(func(id identity.ID, e *directory.Entry) error {
		addr, _, err := ls.directory.At(id)
		if err != nil {
			return err
		}
		contracts = append(contracts, Contract{Address: addr, Entry: e})
		return nil
	})
	return contracts, err
}
