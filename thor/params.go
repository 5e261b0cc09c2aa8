// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"
)

// Compute costs charged by the storage slots of built-in contracts.
const (
	SloadGas       uint64 = 200   // per 32 byte word read
	SstoreSetGas   uint64 = 20000 // per 32 byte word written to an empty slot
	SstoreResetGas uint64 = 5000  // per 32 byte word overwritten or cleared

	// DefaultInvocationBudget is the compute budget of one invocation when the caller sets none.
	DefaultInvocationBudget uint64 = 600_000_000
)

// Remote call and resumable sweep costs.
const (
	DefaultGasToClaimRewards uint64 = 6_000_000
	MinGasForAsyncCall       uint64 = 12_000_000
	MinGasForCallback        uint64 = 12_000_000
	MinGasToSaveProgress     uint64 = 30_000_000
)

// Ledger parameters.
const (
	MaxDelegationContracts uint64 = 50
	UnbondPeriod           uint64 = 10 // epochs
	RecomputeBlockOffset   uint64 = 10 // blocks
	MaxFee                 uint64 = 10_000
)

// MinDelegable is the smallest amount of base asset that can be staked to a delegation contract.
var MinDelegable = big.NewInt(1e18)
