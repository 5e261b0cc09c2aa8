// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/unbond"
	"github.com/vechain/restake/thor"
)

// Request is the body of every restaking operation. Fields not used by an
// operation are ignored.
type Request struct {
	utils.Call
	Validator   *thor.Address         `json:"validator,omitempty"`
	Sovereign   string                `json:"sovereign,omitempty"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Tokens      []utils.Payment       `json:"tokens,omitempty"`
	Fee         uint64                `json:"fee,omitempty"`
	Max         *math.HexOrDecimal256 `json:"max,omitempty"`
	Token       string                `json:"token,omitempty"`
	Rate        *math.HexOrDecimal256 `json:"rate,omitempty"`
	Decimals    uint8                 `json:"decimals,omitempty"`
	Epochs      uint64                `json:"epochs,omitempty"`
	Owner       *thor.Address         `json:"owner,omitempty"`
}

type Token struct {
	Token    string                `json:"token"`
	Rate     *math.HexOrDecimal256 `json:"rate"`
	Decimals uint8                 `json:"decimals"`
}

type Config struct {
	Owner        thor.Address `json:"owner"`
	UnbondEpochs uint64       `json:"unbondEpochs"`
	Tokens       []Token      `json:"tokens"`
}

type Bucket struct {
	MaturityEpoch uint64          `json:"maturityEpoch"`
	Assets        []utils.Payment `json:"assets"`
}

type User struct {
	Tokens    []utils.Payment `json:"tokens"`
	Unbonding []Bucket        `json:"unbonding"`
}

func newUser(tokens *balance.Balance, buckets []*unbond.Bucket) *User {
	u := &User{
		Tokens:    utils.NewPayments(tokens.List()),
		Unbonding: make([]Bucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		u.Unbonding = append(u.Unbonding, Bucket{
			MaturityEpoch: b.MaturityEpoch,
			Assets:        utils.NewPayments(b.Assets.List()),
		})
	}
	return u
}

type Validator struct {
	Name           string                `json:"name"`
	Fee            uint64                `json:"fee"`
	Capped         bool                  `json:"capped"`
	MaxDelegation  *math.HexOrDecimal256 `json:"maxDelegation,omitempty"`
	TotalDelegated *math.HexOrDecimal256 `json:"totalDelegated"`
	Delegators     []thor.Address        `json:"delegators"`
}

type Sovereign struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Capped          bool                  `json:"capped"`
	MaxRestakingCap *math.HexOrDecimal256 `json:"maxRestakingCap,omitempty"`
	TotalRestaked   *math.HexOrDecimal256 `json:"totalRestaked"`
}
