// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package receipts

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/runtime"
)

type Receipts struct {
	rt *runtime.Runtime
}

func New(rt *runtime.Runtime) *Receipts {
	return &Receipts{rt}
}

func (r *Receipts) handleGetReceipt(w http.ResponseWriter, req *http.Request) error {
	id := mux.Vars(req)["id"]
	receipt, ok := r.rt.Receipt(id)
	if !ok {
		return utils.NotFound(errors.Errorf("receipt %s: not found", id))
	}
	return utils.WriteJSON(w, receipt)
}

// handleGetRecent lists the cached receipts, newest block first.
func (r *Receipts) handleGetRecent(w http.ResponseWriter, req *http.Request) error {
	action := req.URL.Query().Get("action")
	all := r.rt.Receipts()
	out := make([]*runtime.Receipt, 0, len(all))
	for _, receipt := range all {
		if action == "" || receipt.Action == action {
			out = append(out, receipt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Block > out[j].Block
	})
	return utils.WriteJSON(w, out)
}

func (r *Receipts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix).
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetRecent))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/{id}").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetReceipt))
}
