// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"bytes"
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/kv"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
)

// metaBucket keeps data about the store itself, apart from contract storage.
const metaBucket = kv.Bucket("m")

var genesisIDKey = []byte("genesis-id")

// Contracts are the addresses the two ledgers live at.
type Contracts struct {
	Restaking     thor.Address
	LiquidStaking thor.Address
}

// Genesis to build the initial ledger state.
type Genesis struct {
	builder   *Builder
	id        thor.Bytes32
	name      string
	contracts Contracts
	simulator SimulatorConfig
}

// ID returns the genesis id.
func (g *Genesis) ID() thor.Bytes32 {
	return g.id
}

func (g *Genesis) Name() string {
	return g.name
}

// Timestamp returns the launch time, from which blocks are counted.
func (g *Genesis) Timestamp() uint64 {
	return g.builder.timestamp
}

// Config returns the clock parameters. Zero fields keep the defaults.
func (g *Genesis) Config() thor.Config {
	return g.builder.config
}

func (g *Genesis) Contracts() Contracts {
	return g.contracts
}

// Build applies the genesis calls to rt.
func (g *Genesis) Build(ctx context.Context, rt *runtime.Runtime) error {
	return g.builder.Build(ctx, rt)
}

// ConfigureSimulator sets the failing targets and the rewards of s.
func (g *Genesis) ConfigureSimulator(s *remote.Simulator) {
	for _, target := range g.simulator.Failing {
		s.SetFailing(target, true)
	}
	for target, amount := range g.simulator.Rewards {
		s.SetReward(target, new(big.Int).Set(toBig(amount)))
	}
}

// Init builds the genesis into an empty store and records its id.
// A store built from another genesis is refused. It reports whether the
// genesis was built by this call.
func (g *Genesis) Init(ctx context.Context, db kv.Store, rt *runtime.Runtime) (bool, error) {
	meta := metaBucket.NewStore(db)
	stored, err := meta.Get(genesisIDKey)
	if err != nil && !meta.IsNotFound(err) {
		return false, errors.Wrap(err, "read genesis id")
	}
	if err == nil {
		if !bytes.Equal(stored, g.id.Bytes()) {
			return false, errors.Errorf("store was built from genesis %v, not %v", thor.BytesToBytes32(stored), g.id)
		}
		return false, nil
	}
	if err := g.Build(ctx, rt); err != nil {
		return false, errors.Wrap(err, "build genesis")
	}
	if err := meta.Put(genesisIDKey, g.id.Bytes()); err != nil {
		return false, errors.Wrap(err, "write genesis id")
	}
	return true, nil
}

// StoredID returns the id of the genesis db was built from, if any.
func StoredID(db kv.Getter) (thor.Bytes32, bool, error) {
	meta := metaBucket.NewGetter(db)
	stored, err := meta.Get(genesisIDKey)
	if err != nil {
		if meta.IsNotFound(err) {
			return thor.Bytes32{}, false, nil
		}
		return thor.Bytes32{}, false, errors.Wrap(err, "read genesis id")
	}
	return thor.BytesToBytes32(stored), true, nil
}
