// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gascharger

import (
	"fmt"

	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/thor"
)

// Charger meters the compute budget of one invocation.
type Charger struct {
	budget         uint64
	sloadOps       uint64
	sstoreSetOps   uint64
	sstoreResetOps uint64
	callOps        uint64
	callGas        uint64
	customGas      uint64
	totalGas       uint64
}

func New(budget uint64) *Charger {
	return &Charger{
		budget: budget,
	}
}

// Charge consumes gas from the budget.
// Once the budget is exhausted every further charge fails.
func (c *Charger) Charge(gas uint64) error {
	if gas > c.Remaining() {
		c.totalGas = c.budget
		return reverts.Newf(reverts.InsufficientComputeBudget, "compute budget exhausted: need %d, remaining %d", gas, c.Remaining())
	}
	c.totalGas += gas

	switch {
	// Handle multiples and single operations
	case gas%thor.SstoreSetGas == 0 && gas > 0:
		count := gas / thor.SstoreSetGas
		c.sstoreSetOps += count

	case gas%thor.SstoreResetGas == 0 && gas > 0:
		count := gas / thor.SstoreResetGas
		c.sstoreResetOps += count

	case gas%thor.SloadGas == 0 && gas > 0:
		count := gas / thor.SloadGas
		c.sloadOps += count

	default:
		// Unknown/custom gas amount
		c.customGas += gas
	}
	return nil
}

// ChargeCall consumes the gas forwarded to a remote call.
func (c *Charger) ChargeCall(gas uint64) error {
	if gas > c.Remaining() {
		c.totalGas = c.budget
		return reverts.Newf(reverts.InsufficientComputeBudget, "not enough compute budget for remote call: need %d", gas)
	}
	c.totalGas += gas
	c.callOps++
	c.callGas += gas
	return nil
}

func (c *Charger) Breakdown() string {
	return fmt.Sprintf(
		"SLOAD: %d ops (%d gas) | SSTORE_SET: %d ops (%d gas) | SSTORE_RESET: %d ops (%d gas) | CALL: %d ops (%d gas) | CUSTOM: %d gas | TOTAL: %d gas",
		c.sloadOps,
		c.sloadOps*thor.SloadGas,
		c.sstoreSetOps,
		c.sstoreSetOps*thor.SstoreSetGas,
		c.sstoreResetOps,
		c.sstoreResetOps*thor.SstoreResetGas,
		c.callOps,
		c.callGas,
		c.customGas,
		c.totalGas,
	)
}

func (c *Charger) TotalGas() uint64 {
	return c.totalGas
}

func (c *Charger) Budget() uint64 {
	return c.budget
}

func (c *Charger) Remaining() uint64 {
	return c.budget - c.totalGas
}
