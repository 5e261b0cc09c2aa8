// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

type positionID uint64

func (id positionID) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

// Position is an unstaked amount waiting for its unbonding period on Contract.
type Position struct {
	Contract     thor.Address
	UnstakeEpoch uint64
	Amount       *big.Int
	UnbondEpoch  uint64
}

// PositionAsset is the asset carrying position id.
func PositionAsset(id uint64) balance.AssetKey {
	return balance.AssetKey{Token: UnstakeToken, Nonce: id}
}

// singlePayIn returns the only payment attached to the invocation.
func (ls *LiquidStaking) singlePayIn() (balance.Payment, error) {
	payIn := ls.env.PayIn()
	if len(payIn) != 1 {
		return balance.Payment{}, reverts.Newf(reverts.InvalidArgument, "expected one payment, got %d", len(payIn))
	}
	p := payIn[0]
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return balance.Payment{}, reverts.New(reverts.ZeroAmount, "zero payment")
	}
	return p, nil
}

// AddLiquidity stakes the attached base asset on the best delegation contract.
// Shares are minted once the stake is confirmed.
func (ls *LiquidStaking) AddLiquidity() (remote.Handle, error) {
	if err := ls.requireActive(); err != nil {
		return 0, err
	}
	p, err := ls.singlePayIn()
	if err != nil {
		return 0, err
	}
	if !p.Asset.IsBase() {
		return 0, reverts.Newf(reverts.InvalidArgument, "cannot add %v as liquidity", p.Asset)
	}
	if p.Amount.Cmp(thor.MinDelegable) < 0 {
		return 0, reverts.Newf(reverts.InvalidArgument, "amount %v below minimum delegable", p.Amount)
	}
	target, err := ls.directory.SelectForStake(p.Amount)
	if err != nil {
		return 0, err
	}
	handle, err := ls.remote.Request(ls.env, xenv.CallStake, target, p.Amount, callbackAddLiquidity, nil)
	if err != nil {
		return 0, err
	}
	logger.Debug("add liquidity requested", "caller", ls.env.Caller(), "target", target, "amount", p.Amount, "handle", handle)
	ls.emit("AddLiquidityRequested", ls.env.Caller(), map[string]string{"target": target.String(), "amount": p.Amount.String()})
	return handle, nil
}

// RemoveLiquidity unstakes the value of the attached LS shares.
// The shares are burned and an unstake position minted once the unstake is confirmed.
func (ls *LiquidStaking) RemoveLiquidity() (remote.Handle, error) {
	if err := ls.requireActive(); err != nil {
		return 0, err
	}
	p, err := ls.singlePayIn()
	if err != nil {
		return 0, err
	}
	if p.Asset != balance.Token(LsToken) {
		return 0, reverts.Newf(reverts.InvalidArgument, "cannot remove liquidity with %v", p.Asset)
	}
	value, err := ls.pool.valueOf(p.Amount)
	if err != nil {
		return 0, err
	}
	if value.Sign() == 0 {
		return 0, reverts.New(reverts.ZeroAmount, "shares worth nothing")
	}
	target, err := ls.directory.SelectForUnstake(value)
	if err != nil {
		return 0, err
	}
	data, err := rlp.EncodeToBytes(p.Amount)
	if err != nil {
		return 0, err
	}
	handle, err := ls.remote.Request(ls.env, xenv.CallUnstake, target, value, callbackRemoveLiquidity, data)
	if err != nil {
		return 0, err
	}
	logger.Debug("remove liquidity requested", "caller", ls.env.Caller(), "target", target, "shares", p.Amount, "value", value)
	ls.emit("RemoveLiquidityRequested", ls.env.Caller(), map[string]string{"target": target.String(), "shares": p.Amount.String(), "value": value.String()})
	return handle, nil
}

// UnbondTokens redeems the attached unstake position for base asset. When the
// ledger has not withdrawn enough from the contract yet, a withdrawal is requested
// and the returned handle is non-zero.
func (ls *LiquidStaking) UnbondTokens() (remote.Handle, error) {
	if err := ls.requireActive(); err != nil {
		return 0, err
	}
	p, err := ls.singlePayIn()
	if err != nil {
		return 0, err
	}
	if p.Asset.Token != UnstakeToken || p.Asset.Nonce == 0 || p.Amount.Cmp(big.NewInt(1)) != 0 {
		return 0, reverts.Newf(reverts.InvalidArgument, "not an unstake position: %v", p)
	}
	id := positionID(p.Asset.Nonce)
	pos, err := ls.position(id)
	if err != nil {
		return 0, err
	}
	if ls.env.BlockContext().Epoch < pos.UnbondEpoch {
		return 0, reverts.Newf(reverts.PreconditionFailed, "position unbonds at epoch %d", pos.UnbondEpoch)
	}
	entry, err := ls.directory.Get(pos.Contract)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, reverts.Newf(reverts.UnknownTarget, "delegation contract %v not whitelisted", pos.Contract)
	}
	if entry.UnbondedFromLedger.Cmp(pos.Amount) >= 0 {
		return 0, ls.settle(id, pos, ls.env.Caller())
	}

	data, err := rlp.EncodeToBytes(uint64(id))
	if err != nil {
		return 0, err
	}
	handle, err := ls.remote.Request(ls.env, xenv.CallWithdraw, pos.Contract, nil, callbackWithdraw, data)
	if err != nil {
		return 0, err
	}
	logger.Debug("withdraw requested", "caller", ls.env.Caller(), "position", id, "target", pos.Contract)
	return handle, nil
}

func (ls *LiquidStaking) position(id positionID) (*Position, error) {
	pos, err := ls.positions.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get position")
	}
	if pos == nil {
		return nil, reverts.Newf(reverts.UnknownTarget, "unknown unstake position %d", id)
	}
	if pos.Amount == nil {
		pos.Amount = new(big.Int)
	}
	return pos, nil
}

// mintPosition records a position and pays its token to holder.
func (ls *LiquidStaking) mintPosition(holder, contract thor.Address, amount *big.Int) (positionID, error) {
	n, err := ls.positionCount.Get()
	if err != nil {
		return 0, err
	}
	id := positionID(n + 1)
	if err := ls.positionCount.Set(n+1, n == 0); err != nil {
		return 0, err
	}
	epoch := ls.env.BlockContext().Epoch
	pos := &Position{
		Contract:     contract,
		UnstakeEpoch: epoch,
		Amount:       new(big.Int).Set(amount),
		UnbondEpoch:  epoch + UnbondPeriod.Get(ls.sctx),
	}
	if err := ls.positions.Insert(id, pos); err != nil {
		return 0, errors.Wrap(err, "failed to insert position")
	}
	if err := ls.unstakeSupply.Add(amount); err != nil {
		return 0, err
	}
	ls.pay(holder, balance.NewPayment(PositionAsset(uint64(id)), big.NewInt(1)))
	return id, nil
}

// settle pays the position out of the unbonded funds of its contract and burns it.
func (ls *LiquidStaking) settle(id positionID, pos *Position, to thor.Address) error {
	if err := ls.directory.SettleUnbonded(pos.Contract, pos.Amount); err != nil {
		return err
	}
	if err := ls.totalWithdrawn.Sub(pos.Amount); err != nil {
		return reverts.Newf(reverts.PreconditionFailed, "total withdrawn: %v", err)
	}
	if err := ls.unstakeSupply.Sub(pos.Amount); err != nil {
		return reverts.Newf(reverts.PreconditionFailed, "unstake supply: %v", err)
	}
	if err := ls.nativeBalance.Sub(pos.Amount); err != nil {
		return reverts.Newf(reverts.PreconditionFailed, "balance: %v", err)
	}
	if err := ls.positions.Delete(id); err != nil {
		return err
	}
	ls.pay(to, balance.Base(pos.Amount))
	metricPositions().AddWithLabel(1, map[string]string{"event": "settled"})
	ls.emit("UnbondTokens", to, map[string]string{"position": PositionAsset(uint64(id)).String(), "amount": pos.Amount.String()})
	return nil
}

// Position returns the unstake position behind id.
func (ls *LiquidStaking) Position(id uint64) (*Position, error) {
	return ls.position(positionID(id))
}
