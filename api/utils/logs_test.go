// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/logdb"
)

func u64(v uint64) *uint64 { return &v }

func TestConvert(t *testing.T) {
	r, opts, order, err := (&LogQuery{}).Convert(10)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, &logdb.Options{Limit: 11}, opts)
	assert.Equal(t, logdb.Order(""), order)

	r, _, _, err = (&LogQuery{Range: &Range{From: u64(5)}}).Convert(10)
	require.NoError(t, err)
	assert.Equal(t, &logdb.Range{From: 5, To: 4}, r)

	r, _, _, err = (&LogQuery{Range: &Range{To: u64(7)}}).Convert(10)
	require.NoError(t, err)
	assert.Equal(t, &logdb.Range{From: 0, To: 7}, r)

	_, opts, order, err = (&LogQuery{Options: &Options{Offset: 3, Limit: 10}, Order: logdb.DESC}).Convert(10)
	require.NoError(t, err)
	assert.Equal(t, &logdb.Options{Offset: 3, Limit: 10}, opts)
	assert.Equal(t, logdb.DESC, order)

	_, _, _, err = (&LogQuery{Options: &Options{Limit: 11}}).Convert(10)
	assert.Error(t, err)
	_, _, _, err = (&LogQuery{Range: &Range{From: u64(2), To: u64(1)}}).Convert(10)
	assert.Error(t, err)
	_, _, _, err = (&LogQuery{Order: "up"}).Convert(10)
	assert.Error(t, err)
}

func TestPayments(t *testing.T) {
	var in []Payment
	require.NoError(t, json.Unmarshal([]byte(`[{"asset":"WEGLD","amount":"1000"},{"asset":"UNSTAKE-1f","amount":"0x10"}]`), &in))

	payments, err := Payments(in)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, balance.Token("WEGLD"), payments[0].Asset)
	assert.Equal(t, "1000", payments[0].Amount.String())
	assert.Equal(t, balance.AssetKey{Token: "UNSTAKE", Nonce: 0x1f}, payments[1].Asset)
	assert.Equal(t, "16", payments[1].Amount.String())

	_, err = Payments([]Payment{{Asset: balance.BaseAsset}})
	assert.Error(t, err)

	out := NewPayments([]balance.Payment{balance.Base(big.NewInt(7))})
	assert.Equal(t, []Payment{{Asset: balance.BaseAsset, Amount: (*math.HexOrDecimal256)(big.NewInt(7))}}, out)
}
