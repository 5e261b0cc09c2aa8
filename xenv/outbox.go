// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"fmt"
	"math/big"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/thor"
)

// CallKind is the operation requested from a remote staking contract.
type CallKind uint8

const (
	CallStake CallKind = iota + 1
	CallUnstake
	CallClaimRewards // fire and forget
	CallWithdraw
)

var callKindNames = map[CallKind]string{
	CallStake:        "stake",
	CallUnstake:      "unstake",
	CallClaimRewards: "claimRewards",
	CallWithdraw:     "withdraw",
}

func (k CallKind) String() string {
	if name, ok := callKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CallKind(%d)", k)
}

func (k CallKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Transfer is a payout to an account.
type Transfer struct {
	From     thor.Address
	To       thor.Address
	Payments []balance.Payment
}

// Call is a remote call leaving the invocation. Handle is zero for fire and forget calls.
type Call struct {
	Handle uint64
	Kind   CallKind
	From   thor.Address
	Target thor.Address
	Value  *big.Int
	Gas    uint64
}

// Event is an audit record of a state change.
type Event struct {
	Contract thor.Address
	Name     string
	Subject  thor.Address
	Block    uint64
	Data     map[string]string
}

// Outbox collects the effects of an invocation, delivered only once it commits.
type Outbox struct {
	Transfers []Transfer
	Calls     []Call
	Events    []Event
}

func (o *Outbox) IsEmpty() bool {
	return len(o.Transfers) == 0 && len(o.Calls) == 0 && len(o.Events) == 0
}

// Reset drops everything queued.
func (o *Outbox) Reset() {
	*o = Outbox{}
}

func clonePayments(payments []balance.Payment) []balance.Payment {
	if len(payments) == 0 {
		return nil
	}
	out := make([]balance.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, balance.NewPayment(p.Asset, cloneBig(p.Amount)))
	}
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
