// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vechain/restake/api/utils"
)

const defaultMaxPendingCalls = 1000

type API struct {
	healthStatus *Health
}

func NewAPI(healthStatus *Health) *API {
	return &API{
		healthStatus: healthStatus,
	}
}

func (h *API) handleGetHealth(w http.ResponseWriter, r *http.Request) error {
	maxPendingCalls := defaultMaxPendingCalls
	if s := r.URL.Query().Get("maxPendingCalls"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			maxPendingCalls = parsed
		}
	}

	acc, err := h.healthStatus.Status(maxPendingCalls)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if !acc.Healthy {
		status = http.StatusServiceUnavailable
	}
	return utils.WriteJSONStatus(w, status, acc)
}

func (h *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetHealth))
}
