// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import "github.com/vechain/restake/metrics"

var (
	metricCallbacks   = metrics.LazyLoadCounterVec("ls_callbacks_count", []string{"callback", "outcome"})
	metricPositions   = metrics.LazyLoadCounterVec("ls_positions_count", []string{"event"})
	metricClaimSweeps = metrics.LazyLoadCounterVec("ls_claim_sweeps_count", []string{"completion"})
	metricClaimSteps  = metrics.LazyLoadCounter("ls_claim_steps_count")
	metricRewards     = metrics.LazyLoadCounter("ls_rewards_received_count")
)
