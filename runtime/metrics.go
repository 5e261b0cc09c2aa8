// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import "github.com/vechain/restake/metrics"

var (
	metricInvocations = metrics.LazyLoadCounterVec("invocations_count", []string{"action", "outcome"})
	// kilo compute units
	metricComputeUsed = metrics.LazyLoadHistogramVec("invocation_compute_used", []string{"action"}, metrics.BucketCompute)
)
