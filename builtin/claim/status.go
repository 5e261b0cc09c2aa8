// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package claim

import (
	"fmt"
	"math/big"

	"github.com/vechain/restake/builtin/identity"
)

type Phase uint8

const (
	None Phase = iota
	Pending
	Finished
	Delegable
	Insufficient
	Redelegated
)

var phaseNames = [...]string{"None", "Pending", "Finished", "Delegable", "Insufficient", "Redelegated"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown claim phase %q", text)
}

// Status is the state of one claim cycle.
type Status struct {
	Phase           Phase
	LastClaimEpoch  uint64
	LastClaimBlock  uint64
	Cursor          identity.ID // next directory entry to claim from
	SnapshotReserve *big.Int    // ledger balance net of withdrawals when the cycle started
	Rewind          bool        // the directory changed under the cursor, walk again from the head at the tail
}

func (s *Status) clone() *Status {
	c := *s
	if s.SnapshotReserve != nil {
		c.SnapshotReserve = new(big.Int).Set(s.SnapshotReserve)
	} else {
		c.SnapshotReserve = new(big.Int)
	}
	return &c
}

// Completion tells how a sweep returned.
type Completion uint8

const (
	Interrupted Completion = iota
	Completed
)

func (c Completion) String() string {
	if c == Completed {
		return "Completed"
	}
	return "Interrupted"
}
