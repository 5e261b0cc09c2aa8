// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transfers

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/thor"
)

type TransferCriteria struct {
	Sender    *thor.Address `json:"sender,omitempty"`
	Recipient *thor.Address `json:"recipient,omitempty"`
	Asset     string        `json:"asset,omitempty"`
}

type TransferFilter struct {
	utils.LogQuery
	InvocationID string              `json:"invocationID,omitempty"`
	CriteriaSet  []*TransferCriteria `json:"criteriaSet,omitempty"`
}

type FilteredTransfer struct {
	InvocationID string                `json:"invocationID"`
	Index        uint32                `json:"index"`
	BlockNumber  uint64                `json:"blockNumber"`
	Sender       thor.Address          `json:"sender"`
	Recipient    thor.Address          `json:"recipient"`
	Asset        balance.AssetKey      `json:"asset"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
}

func convertTransfer(t *logdb.Transfer) *FilteredTransfer {
	return &FilteredTransfer{
		InvocationID: t.InvocationID,
		Index:        t.Index,
		BlockNumber:  t.BlockNumber,
		Sender:       t.Sender,
		Recipient:    t.Recipient,
		Asset:        t.Asset,
		Amount:       (*math.HexOrDecimal256)(t.Amount),
	}
}

type Transfers struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, logsLimit uint64) *Transfers {
	return &Transfers{
		db,
		logsLimit,
	}
}

func (t *Transfers) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter TransferFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	r, opts, order, err := filter.Convert(t.limit)
	if err != nil {
		return err
	}
	f := &logdb.TransferFilter{
		InvocationID: filter.InvocationID,
		Range:        r,
		Options:      opts,
		Order:        order,
	}
	for i, c := range filter.CriteriaSet {
		if c == nil {
			return utils.BadRequest(fmt.Errorf("criteriaSet[%d]: null not allowed", i))
		}
		criteria := &logdb.TransferCriteria{
			Sender:    c.Sender,
			Recipient: c.Recipient,
		}
		if c.Asset != "" {
			asset, err := utils.ParseAsset(c.Asset)
			if err != nil {
				return err
			}
			criteria.Asset = &asset
		}
		f.CriteriaSet = append(f.CriteriaSet, criteria)
	}

	transfers, err := t.db.FilterTransfers(req.Context(), f)
	if err != nil {
		return err
	}
	if len(transfers) > int(t.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered transfers exceeds the maximum allowed value of %d, please use pagination", t.limit))
	}
	fts := make([]*FilteredTransfer, 0, len(transfers))
	for _, tr := range transfers {
		fts = append(fts, convertTransfer(tr))
	}
	return utils.WriteJSON(w, fts)
}

func (t *Transfers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /logs/transfer").
		HandlerFunc(utils.WrapHandlerFunc(t.handleFilter))
}
