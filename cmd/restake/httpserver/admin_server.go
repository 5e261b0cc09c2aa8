// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/vechain/restake/api/admin"
	"github.com/vechain/restake/api/admin/health"
)

func StartAdminServer(
	addr string,
	logLevel *slog.LevelVar,
	healthStatus *health.Health,
	apiLogs *atomic.Bool,
	enableMetrics bool,
) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", addr)
	}

	adminHandler := admin.NewHTTPHandler(logLevel, healthStatus, apiLogs, enableMetrics)

	return "http://" + listener.Addr().String() + "/admin", serve(listener, adminHandler), nil
}
