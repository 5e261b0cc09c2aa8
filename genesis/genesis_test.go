// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/genesis"
	"github.com/vechain/restake/lvldb"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

func newRuntime(t *testing.T, db *lvldb.LevelDB) *runtime.Runtime {
	rt, err := runtime.New(state.New(db, 0), runtime.NewManualClock(0, 10), runtime.Options{})
	require.NoError(t, err)
	return rt
}

func TestDevnet(t *testing.T) {
	gene, err := genesis.NewDevnet()
	require.NoError(t, err)
	assert.Equal(t, "devnet", gene.Name())
	assert.Equal(t, uint64(30), gene.Config().EpochLength)

	again, err := genesis.NewDevnet()
	require.NoError(t, err)
	assert.Equal(t, gene.ID(), again.ID())

	db := lvldb.NewMem()
	defer db.Close()
	rt := newRuntime(t, db)

	built, err := gene.Init(context.Background(), db, rt)
	require.NoError(t, err)
	assert.True(t, built)

	owner := genesis.DevAccounts()[0]
	require.NoError(t, rt.View(func(env *xenv.Environment) error {
		r := restaking.New(gene.Contracts().Restaking, env)
		got, err := r.Owner()
		require.NoError(t, err)
		assert.Equal(t, owner, got)
		assert.Equal(t, uint64(2), r.UnbondEpochs())
		tokens, err := r.Tokens()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"TKA", "TKB"}, tokens)

		ls := liquidstaking.New(gene.Contracts().LiquidStaking, env)
		active, err := ls.IsActive()
		require.NoError(t, err)
		assert.True(t, active)
		dir, err := ls.Directory()
		require.NoError(t, err)
		assert.Len(t, dir, 3)
		return nil
	}))

	id, ok, err := genesis.StoredID(db)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, gene.ID(), id)

	// a second init on the same store is a no-op
	built, err = gene.Init(context.Background(), db, rt)
	require.NoError(t, err)
	assert.False(t, built)
}

func TestInitRefusesOtherGenesis(t *testing.T) {
	db := lvldb.NewMem()
	defer db.Close()
	rt := newRuntime(t, db)

	dev, err := genesis.NewDevnet()
	require.NoError(t, err)
	_, err = dev.Init(context.Background(), db, rt)
	require.NoError(t, err)

	custom, err := genesis.NewCustomNet(&genesis.CustomGenesis{
		Restaking:     genesis.Restaking{Address: thor.BytesToAddress([]byte("r")), Owner: thor.BytesToAddress([]byte("o"))},
		LiquidStaking: genesis.LiquidStaking{Address: thor.BytesToAddress([]byte("l")), Owner: thor.BytesToAddress([]byte("o"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "customnet", custom.Name())

	_, err = custom.Init(context.Background(), db, rt)
	assert.ErrorContains(t, err, "store was built from genesis")
}

func TestLoad(t *testing.T) {
	content := `
name: testnet
launchTime: 1700000000
config:
  epochLength: 20
restaking:
  address: "0x0000000000000000000000000000000000001001"
  owner: "0x00000000000000000000000000000000000000aa"
  unbondEpochs: 3
  tokens:
    - name: TKA
      rate: 1000
      decimals: 3
liquidStaking:
  address: "0x0000000000000000000000000000000000001002"
  owner: "0x00000000000000000000000000000000000000aa"
  active: true
  maxContracts: 5
  contracts:
    - address: "0x00000000000000000000000000000000000000c1"
      admin: "0x00000000000000000000000000000000000000aa"
      totalStaked: 0
      limit: "0x3e8"
      nodes: 1
      yield: 7
simulator:
  failing:
    - "0x00000000000000000000000000000000000000c1"
  rewards:
    "0x00000000000000000000000000000000000000c1": 50
`
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	gen, err := genesis.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", gen.Name)
	assert.Equal(t, uint64(20), gen.Config.EpochLength)
	require.Len(t, gen.Restaking.Tokens, 1)
	assert.Equal(t, "1000", (*big.Int)(gen.Restaking.Tokens[0].Rate).String())
	require.Len(t, gen.LiquidStaking.Contracts, 1)
	assert.Equal(t, "1000", (*big.Int)(gen.LiquidStaking.Contracts[0].Limit).String())

	c1 := thor.MustParseAddress("0x00000000000000000000000000000000000000c1")
	assert.Equal(t, []thor.Address{c1}, gen.Simulator.Failing)
	require.Contains(t, gen.Simulator.Rewards, c1)

	gene, err := genesis.NewCustomNet(gen)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), gene.Timestamp())

	sim := remote.NewSimulator()
	gene.ConfigureSimulator(sim)

	db := lvldb.NewMem()
	defer db.Close()
	_, err = gene.Init(context.Background(), db, newRuntime(t, db))
	require.NoError(t, err)
}

func TestLoadUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unknown: 1\n"), 0o600))
	_, err := genesis.Load(path)
	assert.Error(t, err)
}

func TestNewCustomNetValidation(t *testing.T) {
	a := thor.BytesToAddress([]byte("a"))
	_, err := genesis.NewCustomNet(&genesis.CustomGenesis{})
	assert.Error(t, err)

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Restaking:     genesis.Restaking{Address: a, Owner: a},
		LiquidStaking: genesis.LiquidStaking{Address: a, Owner: a},
	})
	assert.ErrorContains(t, err, "share an address")

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Restaking: genesis.Restaking{
			Address: a, Owner: a,
			Tokens: []genesis.Token{{Name: "T", Rate: nil}},
		},
		LiquidStaking: genesis.LiquidStaking{Address: thor.BytesToAddress([]byte("b")), Owner: a},
	})
	assert.ErrorContains(t, err, "rate must be positive")
}
