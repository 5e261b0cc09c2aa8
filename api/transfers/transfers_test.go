// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transfers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/api/transfers"
	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var (
	ledger = thor.BytesToAddress([]byte("ledger"))
	alice  = thor.BytesToAddress([]byte("alice"))
	bob    = thor.BytesToAddress([]byte("bob"))
)

func initTransferServer(t *testing.T) *httptest.Server {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for i := range 4 {
		to := alice
		if i%2 == 1 {
			to = bob
		}
		batch := db.NewBatch(fmt.Sprintf("inv-%d", i), uint64(i))
		batch.AddTransfer(xenv.Transfer{From: ledger, To: to, Payments: []balance.Payment{
			balance.Base(big.NewInt(int64(i + 1))),
			balance.NewPayment(balance.Token("LS"), big.NewInt(100)),
		}})
		require.NoError(t, batch.Commit(context.Background()))
	}

	router := mux.NewRouter()
	transfers.New(db, 10).Mount(router, "/logs/transfer")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func filter(t *testing.T, ts *httptest.Server, f any) (int, []*transfers.FilteredTransfer) {
	body, err := json.Marshal(f)
	require.NoError(t, err)
	res, err := http.Post(ts.URL+"/logs/transfer", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return res.StatusCode, nil
	}
	var out []*transfers.FilteredTransfer
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func TestTransfers(t *testing.T) {
	ts := initTransferServer(t)

	code, trs := filter(t, ts, &transfers.TransferFilter{})
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, trs, 8)

	code, trs = filter(t, ts, &transfers.TransferFilter{CriteriaSet: []*transfers.TransferCriteria{{Recipient: &bob, Asset: "BASE"}}})
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, trs, 2)
	assert.Equal(t, ledger, trs[0].Sender)
	assert.Equal(t, "2", utils.Big(trs[0].Amount).String())
	assert.Equal(t, "4", utils.Big(trs[1].Amount).String())

	code, trs = filter(t, ts, &transfers.TransferFilter{InvocationID: "inv-2", CriteriaSet: []*transfers.TransferCriteria{{Asset: "LS"}}})
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, trs, 1)
	assert.Equal(t, balance.Token("LS"), trs[0].Asset)
	assert.Equal(t, alice, trs[0].Recipient)

	code, _ = filter(t, ts, &transfers.TransferFilter{CriteriaSet: []*transfers.TransferCriteria{{Asset: "LS-zz"}}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = filter(t, ts, map[string]any{"criteriaSet": []any{nil}})
	assert.Equal(t, http.StatusBadRequest, code)
}
