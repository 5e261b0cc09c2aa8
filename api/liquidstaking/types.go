// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/thor"
)

// Request is the body of every liquid staking operation.
type Request struct {
	utils.Call
	Owner        *thor.Address         `json:"owner,omitempty"`
	Active       bool                  `json:"active,omitempty"`
	Contract     *thor.Address         `json:"contract,omitempty"`
	Admin        *thor.Address         `json:"admin,omitempty"`
	TotalStaked  *math.HexOrDecimal256 `json:"totalStaked,omitempty"`
	Limit        *math.HexOrDecimal256 `json:"limit,omitempty"`
	Nodes        uint64                `json:"nodes,omitempty"`
	Yield        uint64                `json:"yield,omitempty"`
	MaxContracts uint64                `json:"maxContracts,omitempty"`
}

type Pool struct {
	LsSupply       *math.HexOrDecimal256 `json:"lsSupply"`
	VirtualReserve *math.HexOrDecimal256 `json:"virtualReserve"`
	RewardsReserve *math.HexOrDecimal256 `json:"rewardsReserve"`
	TotalWithdrawn *math.HexOrDecimal256 `json:"totalWithdrawn"`
	UnstakeSupply  *math.HexOrDecimal256 `json:"unstakeSupply"`
	Balance        *math.HexOrDecimal256 `json:"balance"`
}

func newPool(info *liquidstaking.PoolInfo) *Pool {
	return &Pool{
		LsSupply:       (*math.HexOrDecimal256)(info.LsSupply),
		VirtualReserve: (*math.HexOrDecimal256)(info.VirtualReserve),
		RewardsReserve: (*math.HexOrDecimal256)(info.RewardsReserve),
		TotalWithdrawn: (*math.HexOrDecimal256)(info.TotalWithdrawn),
		UnstakeSupply:  (*math.HexOrDecimal256)(info.UnstakeSupply),
		Balance:        (*math.HexOrDecimal256)(info.Balance),
	}
}

type Claim struct {
	Phase           claim.Phase           `json:"phase"`
	LastClaimEpoch  uint64                `json:"lastClaimEpoch"`
	LastClaimBlock  uint64                `json:"lastClaimBlock"`
	SnapshotReserve *math.HexOrDecimal256 `json:"snapshotReserve,omitempty"`
	Operation       claim.Phase           `json:"operation"`
}

type Contract struct {
	Address            thor.Address          `json:"address"`
	Admin              thor.Address          `json:"admin"`
	TotalStaked        *math.HexOrDecimal256 `json:"totalStaked"`
	Cap                *math.HexOrDecimal256 `json:"cap"`
	Nodes              uint64                `json:"nodes"`
	Yield              uint64                `json:"yield"`
	StakedFromLedger   *math.HexOrDecimal256 `json:"stakedFromLedger"`
	UnstakedFromLedger *math.HexOrDecimal256 `json:"unstakedFromLedger"`
	UnbondedFromLedger *math.HexOrDecimal256 `json:"unbondedFromLedger"`
}

func newContract(c liquidstaking.Contract) Contract {
	return Contract{
		Address:            c.Address,
		Admin:              c.Admin,
		TotalStaked:        (*math.HexOrDecimal256)(c.TotalStaked),
		Cap:                (*math.HexOrDecimal256)(c.Cap),
		Nodes:              c.Nodes,
		Yield:              c.Yield,
		StakedFromLedger:   (*math.HexOrDecimal256)(c.StakedFromLedger),
		UnstakedFromLedger: (*math.HexOrDecimal256)(c.UnstakedFromLedger),
		UnbondedFromLedger: (*math.HexOrDecimal256)(c.UnbondedFromLedger),
	}
}

type Position struct {
	ID           uint64                `json:"id"`
	Asset        string                `json:"asset"`
	Contract     thor.Address          `json:"contract"`
	UnstakeEpoch uint64                `json:"unstakeEpoch"`
	UnbondEpoch  uint64                `json:"unbondEpoch"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
}

// Handle is the result of operations waiting for a remote call.
type Handle struct {
	Handle uint64 `json:"handle"`
}
