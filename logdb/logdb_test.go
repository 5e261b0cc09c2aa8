// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb_test

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var (
	contract = thor.BytesToAddress([]byte("ls"))
	alice    = thor.BytesToAddress([]byte("alice"))
	bob      = thor.BytesToAddress([]byte("bob"))
)

func fill(t *testing.T, db *logdb.LogDB, n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		subject := alice
		if i%2 == 1 {
			subject = bob
		}
		b := db.NewBatch(fmt.Sprintf("inv-%03d", i), uint64(i))
		b.AddEvent(xenv.Event{
			Contract: contract,
			Name:     "AddLiquidity",
			Subject:  subject,
			Data:     map[string]string{"amount": fmt.Sprint(i)},
		})
		b.AddTransfer(xenv.Transfer{
			From: contract,
			To:   subject,
			Payments: []balance.Payment{
				balance.NewPayment(balance.Token("LS"), big.NewInt(int64(i+1))),
				balance.NewPayment(balance.AssetKey{Token: "UNSTAKE", Nonce: uint64(i + 1)}, big.NewInt(1)),
			},
		})
		require.NoError(t, b.Commit(ctx))
	}
}

func TestEvents(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	fill(t, db, 10)

	ctx := context.Background()
	all, err := db.FilterEvents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, "inv-000", all[0].InvocationID)
	assert.Equal(t, contract, all[0].Contract)
	assert.Equal(t, map[string]string{"amount": "0"}, all[0].Data)

	events, err := db.FilterEvents(ctx, &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{{Subject: &bob}},
		Range:       &logdb.Range{From: 2, To: 7},
		Order:       logdb.DESC,
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(7), events[0].BlockNumber)
	assert.Equal(t, uint64(3), events[2].BlockNumber)

	events, err = db.FilterEvents(ctx, &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{{Name: "AddLiquidity"}},
		Options:     &logdb.Options{Offset: 8, Limit: 5},
	})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = db.FilterEvents(ctx, &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{{Name: "RemoveLiquidity"}},
	})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTransfers(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	fill(t, db, 4)

	ctx := context.Background()
	all, err := db.FilterTransfers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, balance.Token("LS"), all[0].Asset)
	assert.Equal(t, "1", all[0].Amount.String())
	assert.Equal(t, balance.AssetKey{Token: "UNSTAKE", Nonce: 1}, all[1].Asset)

	ls := balance.Token("LS")
	transfers, err := db.FilterTransfers(ctx, &logdb.TransferFilter{
		CriteriaSet: []*logdb.TransferCriteria{
			{Recipient: &alice, Asset: &ls},
			{Recipient: &bob, Asset: &ls},
		},
		Range: &logdb.Range{From: 1},
	})
	require.NoError(t, err)
	require.Len(t, transfers, 3)
	for _, tr := range transfers {
		assert.Equal(t, ls, tr.Asset)
		assert.True(t, tr.BlockNumber >= 1)
	}

	transfers, err = db.FilterTransfers(ctx, &logdb.TransferFilter{InvocationID: "inv-002"})
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, alice, transfers[0].Recipient)
}

func TestEmptyBatch(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := db.NewBatch("noop", 1)
	assert.True(t, b.IsEmpty())
	assert.NoError(t, b.Commit(context.Background()))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	db, err := logdb.New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	assert.NotEmpty(t, db.DriverVersion())
	fill(t, db, 2)
	require.NoError(t, db.Close())

	db, err = logdb.New(path)
	require.NoError(t, err)
	defer db.Close()
	events, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCanceled(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	fill(t, db, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = db.FilterEvents(ctx, nil)
	assert.Error(t, err)
}
