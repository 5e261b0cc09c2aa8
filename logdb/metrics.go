// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import "github.com/vechain/restake/metrics"

var (
	metricWrittenRows = metrics.LazyLoadCounterVec("logdb_written_rows_count", []string{"table"})
	metricQueryTime   = metrics.LazyLoadHistogramVec("logdb_query_duration_ms", []string{"table"}, metrics.BucketHTTPReqs)
)
