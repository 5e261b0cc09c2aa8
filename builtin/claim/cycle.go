// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package claim

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
)

var logger = log.WithContext("pkg", "claim")

var (
	MinGasToSaveProgress = solidity.NewConfigVariable("min-gas-to-save-progress", thor.MinGasToSaveProgress)
	RecomputeBlockOffset = solidity.NewConfigVariable("recompute-block-offset", thor.RecomputeBlockOffset)
)

// Cycle drives the claim, recompute and redelegate cycle of the liquid staking ledger.
// The committed status and the in-flight operation live in separate slots,
// an empty operation slot means no sweep is in progress.
type Cycle struct {
	sctx      *solidity.Context
	status    *solidity.Raw[*Status]
	operation *solidity.Raw[*Status]
	rewards   *solidity.Uint256
}

func New(sctx *solidity.Context) *Cycle {
	return &Cycle{
		sctx:      sctx,
		status:    solidity.NewRaw[*Status](sctx, thor.BytesToBytes32([]byte("claim-status"))),
		operation: solidity.NewRaw[*Status](sctx, thor.BytesToBytes32([]byte("claim-operation"))),
		rewards:   solidity.NewUint256(sctx, thor.BytesToBytes32([]byte("rewards-reserve"))),
	}
}

// Init sets the committed status to Insufficient at epoch, unless already set.
func (c *Cycle) Init(epoch uint64) error {
	s, err := c.status.Get()
	if err != nil || s != nil {
		return err
	}
	return c.status.Set(&Status{Phase: Insufficient, LastClaimEpoch: epoch, SnapshotReserve: new(big.Int)}, true)
}

// Status returns the committed status.
func (c *Cycle) Status() (*Status, error) {
	s, err := c.status.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get claim status")
	}
	if s == nil {
		s = &Status{Phase: Insufficient}
	}
	return s.clone(), nil
}

// Operation returns the in-flight operation, with phase None when idle.
func (c *Cycle) Operation() (*Status, error) {
	s, err := c.operation.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get claim operation")
	}
	if s == nil {
		s = &Status{Phase: None}
	}
	return s.clone(), nil
}

func (c *Cycle) RewardsReserve() (*big.Int, error) {
	return c.rewards.Get()
}

// Start checks a claim may run at epoch and, when none is in flight, opens one
// starting at the directory head with a snapshot of the reserve.
func (c *Cycle) Start(epoch uint64, reserve func() (*big.Int, error), head func() (identity.ID, error)) error {
	op, err := c.Operation()
	if err != nil {
		return err
	}
	committed, err := c.Status()
	if err != nil {
		return err
	}
	if op.Phase != None && op.Phase != Pending {
		return reverts.New(reverts.PreconditionFailed, "claim operation must be new or pending")
	}
	if committed.Phase != Redelegated && committed.Phase != Insufficient {
		return reverts.New(reverts.PreconditionFailed, "previous claimed rewards must be redelegated or lesser than 1 base unit")
	}
	if epoch <= committed.LastClaimEpoch {
		return reverts.New(reverts.PreconditionFailed, "the rewards were already claimed for this epoch")
	}
	if op.Phase != None {
		return nil
	}

	first, err := head()
	if err != nil {
		return err
	}
	if first.IsNull() {
		return reverts.New(reverts.NoEligibleTarget, "no delegation contracts")
	}
	snapshot, err := reserve()
	if err != nil {
		return err
	}
	op = &Status{
		Phase:           Pending,
		LastClaimEpoch:  epoch,
		LastClaimBlock:  committed.LastClaimBlock,
		Cursor:          first,
		SnapshotReserve: snapshot,
	}
	if err := c.operation.Set(op, true); err != nil {
		return err
	}
	logger.Debug("claim started", "epoch", epoch, "snapshot", snapshot)
	return nil
}

// DirectoryChanged records that entries were moved or added while a claim is in
// flight. The cursor may then have jumped over entries, so the sweep walks the
// directory once more from the head when it reaches the tail. It is a no-op when
// no claim is in flight.
func (c *Cycle) DirectoryChanged() error {
	op, err := c.Operation()
	if err != nil {
		return err
	}
	if op.Phase != Pending || op.Rewind {
		return nil
	}
	op.Rewind = true
	return c.operation.Set(op, false)
}

// Sweep runs step on the in-flight operation, one entry at a time, while the budget
// can pay for another step plus saving progress. step returns the handle after the
// one it processed, Null once the tail is done. step must skip entries it already
// processed in this cycle, as a rewind revisits them.
// A nil budget never interrupts.
func (c *Cycle) Sweep(
	budget *gascharger.Charger,
	step func(identity.ID) (identity.ID, error),
	head func() (identity.ID, error),
	block uint64,
) (Completion, error) {
	op, err := c.Operation()
	if err != nil {
		return Interrupted, err
	}
	if op.Phase != Pending {
		return Interrupted, reverts.New(reverts.PreconditionFailed, "no claim in progress")
	}
	minToSave := MinGasToSaveProgress.Get(c.sctx)

	steps := 0
	for {
		var before uint64
		if budget != nil {
			before = budget.TotalGas()
		}
		next, err := step(op.Cursor)
		if err != nil {
			return Interrupted, err
		}
		steps++

		if next.IsNull() && op.Rewind {
			if next, err = head(); err != nil {
				return Interrupted, err
			}
			op.Rewind = false
			logger.Debug("claim rewound", "steps", steps)
		}
		if next.IsNull() {
			op.Phase = Finished
			op.LastClaimBlock = block
			op.Cursor = identity.Null
			if err := c.status.Set(op, false); err != nil {
				return Interrupted, err
			}
			if err := c.operation.Set(nil, false); err != nil {
				return Interrupted, err
			}
			logger.Debug("claim completed", "steps", steps, "block", block)
			return Completed, nil
		}
		op.Cursor = next

		if budget != nil {
			cost := budget.TotalGas() - before
			if budget.Remaining() < cost+minToSave {
				if err := c.operation.Set(op, false); err != nil {
					return Interrupted, err
				}
				logger.Debug("claim interrupted", "steps", steps, "cursor", next)
				return Interrupted, nil
			}
		}
	}
}

// Recompute books rewards accumulated since the claim snapshot and decides whether
// they are enough to redelegate. It returns the rewards added.
func (c *Cycle) Recompute(block uint64, balance, totalWithdrawn *big.Int) (*big.Int, error) {
	s, err := c.Status()
	if err != nil {
		return nil, err
	}
	if s.Phase != Finished {
		return nil, reverts.New(reverts.PreconditionFailed, "claim operation must be finished")
	}
	if block < s.LastClaimBlock+RecomputeBlockOffset.Get(c.sctx) {
		return nil, reverts.New(reverts.PreconditionFailed, "recompute too soon")
	}

	added := new(big.Int).Sub(balance, totalWithdrawn)
	added.Sub(added, s.SnapshotReserve)
	if added.Sign() > 0 {
		if err := c.rewards.Add(added); err != nil {
			return nil, err
		}
	} else {
		added.SetInt64(0)
	}

	reserve, err := c.rewards.Get()
	if err != nil {
		return nil, err
	}
	if reserve.Cmp(thor.MinDelegable) >= 0 {
		s.Phase = Delegable
	} else {
		s.Phase = Insufficient
	}
	if err := c.status.Set(s, false); err != nil {
		return nil, err
	}
	return added, nil
}

// BeginDelegate empties the rewards reserve for redelegation and returns it.
func (c *Cycle) BeginDelegate() (*big.Int, error) {
	s, err := c.Status()
	if err != nil {
		return nil, err
	}
	if s.Phase != Delegable {
		return nil, reverts.New(reverts.PreconditionFailed, "old claimed rewards must be delegable")
	}
	reserve, err := c.rewards.Get()
	if err != nil {
		return nil, err
	}
	if err := c.rewards.Set(nil); err != nil {
		return nil, err
	}
	return reserve, nil
}

// RestoreRewards puts back a reserve whose redelegation failed.
func (c *Cycle) RestoreRewards(amount *big.Int) error {
	return c.rewards.Set(amount)
}

func (c *Cycle) MarkRedelegated() error {
	s, err := c.Status()
	if err != nil {
		return err
	}
	s.Phase = Redelegated
	return c.status.Set(s, false)
}
