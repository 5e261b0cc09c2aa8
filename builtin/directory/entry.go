// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package directory

import (
	"math/big"

	"github.com/vechain/restake/thor"
)

// Entry describes a delegation contract the ledger may stake to.
type Entry struct {
	Admin       thor.Address
	TotalStaked *big.Int // capacity already used on the contract
	Cap         *big.Int // capacity limit of the contract
	Nodes       uint64
	Yield       uint64 // APY, higher is preferred

	StakedFromLedger   *big.Int
	UnstakedFromLedger *big.Int
	UnbondedFromLedger *big.Int

	ClaimedEpoch uint64 // epoch of the claim cycle that last asked for rewards
}

// NewEntry creates an entry with no ledger funds.
func NewEntry(admin thor.Address, totalStaked, limit *big.Int, nodes, yield uint64) *Entry {
	return (&Entry{
		Admin:       admin,
		TotalStaked: totalStaked,
		Cap:         limit,
		Nodes:       nodes,
		Yield:       yield,
	}).normalize()
}

// SpaceLeft returns Cap - TotalStaked, zero when the contract is full.
func (e *Entry) SpaceLeft() *big.Int {
	left := new(big.Int).Sub(e.Cap, e.TotalStaked)
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}

func (e *Entry) normalize() *Entry {
	for _, v := range []**big.Int{&e.TotalStaked, &e.Cap, &e.StakedFromLedger, &e.UnstakedFromLedger, &e.UnbondedFromLedger} {
		if *v == nil {
			*v = new(big.Int)
		} else {
			*v = new(big.Int).Set(*v)
		}
	}
	return e
}

func (e *Entry) Clone() *Entry {
	c := *e
	return c.normalize()
}
