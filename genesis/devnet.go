// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/restake/thor"
)

// DevAccounts returns the fixed accounts used by the dev network.
func DevAccounts() []thor.Address {
	accs := make([]thor.Address, 0, 10)
	for i := range 10 {
		accs = append(accs, thor.BytesToAddress(thor.Blake2b([]byte(fmt.Sprintf("dev-account-%d", i))).Bytes()))
	}
	return accs
}

var (
	devRestaking     = thor.BytesToAddress([]byte("restaking"))
	devLiquidStaking = thor.BytesToAddress([]byte("liquid-staking"))
)

func units(n int64) *math.HexOrDecimal256 {
	v := new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
	return (*math.HexOrDecimal256)(v)
}

// NewDevnet create the dev network genesis: both ledgers owned by the first
// dev account, two tokens, and three active delegation contracts.
func NewDevnet() (*Genesis, error) {
	accs := DevAccounts()
	owner := accs[0]

	gen := &CustomGenesis{
		Name:       "devnet",
		LaunchTime: 1735689600, // 2025-01-01
		Config:     &thor.Config{EpochLength: 30},
		Restaking: Restaking{
			Address:      devRestaking,
			Owner:        owner,
			UnbondEpochs: 2,
			Tokens: []Token{
				{Name: "TKA", Rate: units(1), Decimals: 18},
				{Name: "TKB", Rate: (*math.HexOrDecimal256)(big.NewInt(2)), Decimals: 0},
			},
		},
		LiquidStaking: LiquidStaking{
			Address: devLiquidStaking,
			Owner:   owner,
			Active:  true,
		},
	}
	for i, acc := range accs[7:] {
		gen.LiquidStaking.Contracts = append(gen.LiquidStaking.Contracts, DelegationContract{
			Address:     acc,
			Admin:       owner,
			TotalStaked: units(0),
			Limit:       units(1_000_000),
			Nodes:       uint64(i + 1),
			Yield:       uint64(5 + i),
		})
	}
	return NewCustomNet(gen)
}
