// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import "github.com/vechain/restake/metrics"

var metricRemoteCalls = metrics.LazyLoadCounterVec("remote_calls_count", []string{"kind", "outcome"})
