// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/restake/api/admin/apilogs"
	"github.com/vechain/restake/api/admin/health"
	"github.com/vechain/restake/api/admin/loglevel"
	"github.com/vechain/restake/metrics"
)

// NewHTTPHandler serves the operator endpoints under /admin.
// Metrics are exposed at /admin/metrics only when enableMetrics is set.
func NewHTTPHandler(
	logLevel *slog.LevelVar,
	healthStatus *health.Health,
	apiLogsToggle *atomic.Bool,
	enableMetrics bool,
) http.HandlerFunc {
	router := mux.NewRouter()
	subRouter := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(subRouter, "/loglevel")
	health.NewAPI(healthStatus).Mount(subRouter, "/health")
	apilogs.New(apiLogsToggle).Mount(subRouter, "/apilogs")
	if enableMetrics {
		subRouter.Path("/metrics").
			Methods(http.MethodGet).
			Name("GET /admin/metrics").
			Handler(metrics.HTTPHandler())
	}

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
