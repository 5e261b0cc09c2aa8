// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

// CustomGenesis is user customized genesis
type CustomGenesis struct {
	Name          string          `yaml:"name" json:"name"`
	LaunchTime    uint64          `yaml:"launchTime" json:"launchTime"`
	Config        *thor.Config    `yaml:"config" json:"config"`
	Restaking     Restaking       `yaml:"restaking" json:"restaking"`
	LiquidStaking LiquidStaking   `yaml:"liquidStaking" json:"liquidStaking"`
	Simulator     SimulatorConfig `yaml:"simulator" json:"simulator"`
}

// Token is a whitelisted token with its price.
type Token struct {
	Name     string                `yaml:"name" json:"name"`
	Rate     *math.HexOrDecimal256 `yaml:"rate" json:"rate"`
	Decimals uint8                 `yaml:"decimals" json:"decimals"`
}

// Restaking is the initial setup of the restaking ledger.
type Restaking struct {
	Address      thor.Address `yaml:"address" json:"address"`
	Owner        thor.Address `yaml:"owner" json:"owner"`
	UnbondEpochs uint64       `yaml:"unbondEpochs" json:"unbondEpochs"`
	Tokens       []Token      `yaml:"tokens" json:"tokens"`
}

// DelegationContract is a delegation contract whitelisted at launch.
type DelegationContract struct {
	Address     thor.Address          `yaml:"address" json:"address"`
	Admin       thor.Address          `yaml:"admin" json:"admin"`
	TotalStaked *math.HexOrDecimal256 `yaml:"totalStaked" json:"totalStaked"`
	Limit       *math.HexOrDecimal256 `yaml:"limit" json:"limit"`
	Nodes       uint64                `yaml:"nodes" json:"nodes"`
	Yield       uint64                `yaml:"yield" json:"yield"`
}

// LiquidStaking is the initial setup of the liquid staking pool.
type LiquidStaking struct {
	Address      thor.Address         `yaml:"address" json:"address"`
	Owner        thor.Address         `yaml:"owner" json:"owner"`
	Active       bool                 `yaml:"active" json:"active"`
	MaxContracts uint64               `yaml:"maxContracts" json:"maxContracts"`
	Contracts    []DelegationContract `yaml:"contracts" json:"contracts"`
}

// SimulatorConfig sets how the in-process delegation contracts behave.
type SimulatorConfig struct {
	Failing []thor.Address                         `yaml:"failing" json:"failing"`
	Rewards map[thor.Address]*math.HexOrDecimal256 `yaml:"rewards" json:"rewards"`
}

func toBig(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}

// Load reads a custom genesis from a yaml file. Unknown fields are rejected.
func Load(path string) (*CustomGenesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var gen CustomGenesis
	if err := decoder.Decode(&gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis file")
	}
	return &gen, nil
}

// NewCustomNet create custom network genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	if gen.Restaking.Address.IsZero() || gen.LiquidStaking.Address.IsZero() {
		return nil, errors.New("contract addresses must be set")
	}
	if gen.Restaking.Address == gen.LiquidStaking.Address {
		return nil, errors.New("restaking and liquid staking share an address")
	}
	if gen.Restaking.Owner.IsZero() || gen.LiquidStaking.Owner.IsZero() {
		return nil, errors.New("owners must be set")
	}
	for i, t := range gen.Restaking.Tokens {
		if t.Rate == nil || (*big.Int)(t.Rate).Sign() <= 0 {
			return nil, fmt.Errorf("tokens[%d]: rate must be positive", i)
		}
	}
	for i, c := range gen.LiquidStaking.Contracts {
		if c.Limit == nil {
			return nil, fmt.Errorf("contracts[%d]: limit required", i)
		}
	}

	var cfg thor.Config
	if gen.Config != nil {
		cfg = *gen.Config
	}

	rs, ls := gen.Restaking, gen.LiquidStaking
	builder := new(Builder).
		Timestamp(gen.LaunchTime).
		Config(cfg).
		Call("init", rs.Owner, func(env *xenv.Environment) error {
			r := restaking.New(rs.Address, env)
			if err := r.Init(rs.Owner); err != nil {
				return err
			}
			if rs.UnbondEpochs > 0 {
				if err := r.SetUnbondEpochs(rs.UnbondEpochs); err != nil {
					return err
				}
			}
			for _, t := range rs.Tokens {
				if err := r.AddToken(t.Name, toBig(t.Rate), t.Decimals); err != nil {
					return err
				}
			}
			return nil
		}).
		Call("init", ls.Owner, func(env *xenv.Environment) error {
			l := liquidstaking.New(ls.Address, env)
			if err := l.Init(ls.Owner); err != nil {
				return err
			}
			if ls.MaxContracts > 0 {
				if err := l.SetMaxContracts(ls.MaxContracts); err != nil {
					return err
				}
			}
			for _, c := range ls.Contracts {
				if err := l.WhitelistContract(c.Address, c.Admin, toBig(c.TotalStaked), toBig(c.Limit), c.Nodes, c.Yield); err != nil {
					return err
				}
			}
			return l.SetActive(ls.Active)
		})

	id, err := computeID(gen)
	if err != nil {
		return nil, err
	}
	name := gen.Name
	if name == "" {
		name = "customnet"
	}
	return &Genesis{
		builder:   builder,
		id:        id,
		name:      name,
		contracts: Contracts{Restaking: rs.Address, LiquidStaking: ls.Address},
		simulator: gen.Simulator,
	}, nil
}

// computeID hashes the json form of gen, whose field order is fixed.
func computeID(gen *CustomGenesis) (thor.Bytes32, error) {
	data, err := json.Marshal(gen)
	if err != nil {
		return thor.Bytes32{}, errors.Wrap(err, "encode genesis")
	}
	return thor.Blake2b(data), nil
}
