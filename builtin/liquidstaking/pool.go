// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
)

// pool tracks LS shares against the virtual reserve of base asset they claim.
type pool struct {
	supply  *solidity.Uint256
	reserve *solidity.Uint256
}

// mulDiv returns x*y/d, failing when any operand or the result leaves 256 bits.
func mulDiv(x, y, d *big.Int) (*big.Int, error) {
	ux, o1 := uint256.FromBig(x)
	uy, o2 := uint256.FromBig(y)
	ud, o3 := uint256.FromBig(d)
	if o1 || o2 || o3 {
		return nil, reverts.New(reverts.InvalidArgument, "amount out of range")
	}
	if ud.IsZero() {
		return nil, reverts.New(reverts.PreconditionFailed, "empty pool")
	}
	z, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud)
	if overflow {
		return nil, reverts.New(reverts.InvalidArgument, "amount out of range")
	}
	return z.ToBig(), nil
}

// sharesFor returns the shares minted for amount, 1:1 on an empty pool.
func (p *pool) sharesFor(amount *big.Int) (*big.Int, error) {
	supply, err := p.supply.Get()
	if err != nil {
		return nil, err
	}
	reserve, err := p.reserve.Get()
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 || reserve.Sign() == 0 {
		return new(big.Int).Set(amount), nil
	}
	return mulDiv(amount, supply, reserve)
}

// valueOf returns the reserve claimed by shares.
func (p *pool) valueOf(shares *big.Int) (*big.Int, error) {
	supply, err := p.supply.Get()
	if err != nil {
		return nil, err
	}
	if shares.Cmp(supply) > 0 {
		return nil, reverts.Newf(reverts.InsufficientBalance, "shares %v above supply %v", shares, supply)
	}
	reserve, err := p.reserve.Get()
	if err != nil {
		return nil, err
	}
	return mulDiv(shares, reserve, supply)
}

// add mints shares for amount and grows the reserve by it.
func (p *pool) add(amount *big.Int) (*big.Int, error) {
	shares, err := p.sharesFor(amount)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 {
		return nil, reverts.New(reverts.ZeroAmount, "amount too small for a share")
	}
	if err := p.supply.Add(shares); err != nil {
		return nil, err
	}
	if err := p.reserve.Add(amount); err != nil {
		return nil, err
	}
	return shares, nil
}

// remove burns shares and takes value out of the reserve.
func (p *pool) remove(shares, value *big.Int) error {
	if err := p.supply.Sub(shares); err != nil {
		return reverts.Newf(reverts.PreconditionFailed, "burn shares: %v", err)
	}
	if err := p.reserve.Sub(value); err != nil {
		return reverts.Newf(reverts.PreconditionFailed, "remove reserve: %v", err)
	}
	return nil
}

// grow adds redelegated rewards to the reserve, raising the value of every share.
func (p *pool) grow(amount *big.Int) error {
	return p.reserve.Add(amount)
}

// PoolInfo is a snapshot of the ledger accounting.
type PoolInfo struct {
	LsSupply       *big.Int
	VirtualReserve *big.Int
	RewardsReserve *big.Int
	TotalWithdrawn *big.Int
	UnstakeSupply  *big.Int
	Balance        *big.Int
}

// Pool returns the accounting snapshot.
func (ls *LiquidStaking) Pool() (*PoolInfo, error) {
	var (
		info PoolInfo
		err  error
	)
	if info.LsSupply, err = ls.pool.supply.Get(); err != nil {
		return nil, err
	}
	if info.VirtualReserve, err = ls.pool.reserve.Get(); err != nil {
		return nil, err
	}
	if info.RewardsReserve, err = ls.cycle.RewardsReserve(); err != nil {
		return nil, err
	}
	if info.TotalWithdrawn, err = ls.totalWithdrawn.Get(); err != nil {
		return nil, err
	}
	if info.UnstakeSupply, err = ls.unstakeSupply.Get(); err != nil {
		return nil, err
	}
	if info.Balance, err = ls.nativeBalance.Get(); err != nil {
		return nil, err
	}
	return &info, nil
}

// LsValueForShares returns the base value of shares at the current rate.
func (ls *LiquidStaking) LsValueForShares(shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, reverts.New(reverts.ZeroAmount, "zero shares")
	}
	return ls.pool.valueOf(shares)
}
