// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/restake/api/doc"
	"github.com/vechain/restake/api/events"
	"github.com/vechain/restake/api/liquidstaking"
	"github.com/vechain/restake/api/middleware"
	"github.com/vechain/restake/api/receipts"
	"github.com/vechain/restake/api/restaking"
	"github.com/vechain/restake/api/subscriptions"
	"github.com/vechain/restake/api/transfers"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
)

var logger = log.WithContext("pkg", "api")

// Contracts holds the addresses the ledger and the pool are served from.
type Contracts struct {
	Restaking     thor.Address
	LiquidStaking thor.Address
}

type Options struct {
	AllowedOrigins       string
	LogsLimit            uint64
	SkipLogs             bool
	PprofOn              bool
	EnableMetrics        bool
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
}

// New return api router
func New(
	rt *runtime.Runtime,
	logDB *logdb.LogDB,
	contracts Contracts,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/restake.yaml", http.StatusTemporaryRedirect)
		})

	restaking.New(rt, contracts.Restaking).
		Mount(router, "/restaking")
	liquidstaking.New(rt, contracts.LiquidStaking).
		Mount(router, "/liquidstaking")
	receipts.New(rt).
		Mount(router, "/receipts")

	if !opts.SkipLogs && logDB != nil {
		events.New(logDB, opts.LogsLimit).
			Mount(router, "/logs/event")
		transfers.New(logDB, opts.LogsLimit).
			Mount(router, "/logs/transfer")
	}
	subs := subscriptions.New(rt, origins)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.ExposedHeaders([]string{"x-restake-ver"}),
	)(handler)

	enabled := opts.EnableReqLogger
	if enabled == nil {
		enabled = &atomic.Bool{}
	}
	handler = middleware.RequestLoggerMiddleware(logger, enabled, opts.SlowQueriesThreshold, opts.Log5xxErrors)(handler)

	handler = versionHandler(handler)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}

func versionHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-restake-ver", doc.Version())
		h.ServeHTTP(w, r)
	})
}
