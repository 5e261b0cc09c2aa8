// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
)

// Payment is the JSON form of balance.Payment.
type Payment struct {
	Asset  balance.AssetKey      `json:"asset"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

func NewPayment(p balance.Payment) Payment {
	return Payment{Asset: p.Asset, Amount: (*math.HexOrDecimal256)(p.Amount)}
}

func NewPayments(payments []balance.Payment) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, NewPayment(p))
	}
	return out
}

// Payments converts JSON payments, rejecting missing amounts.
func Payments(payments []Payment) ([]balance.Payment, error) {
	out := make([]balance.Payment, 0, len(payments))
	for i, p := range payments {
		if p.Amount == nil {
			return nil, errors.Errorf("payments[%d]: missing amount", i)
		}
		out = append(out, balance.NewPayment(p.Asset, (*big.Int)(p.Amount)))
	}
	return out, nil
}

// Big converts an optional JSON amount, nil stays nil.
func Big(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(v))
}

// Call carries the invocation envelope of a request.
type Call struct {
	Caller   thor.Address `json:"caller"`
	Payments []Payment    `json:"payments,omitempty"`
	Budget   uint64       `json:"budget,omitempty"`
}

func (c *Call) Invocation(action string) (runtime.Invocation, error) {
	payments, err := Payments(c.Payments)
	if err != nil {
		return runtime.Invocation{}, err
	}
	return runtime.Invocation{
		Action:   action,
		Caller:   c.Caller,
		Payments: payments,
		Budget:   c.Budget,
	}, nil
}

// Receipt is a runtime receipt with the value returned by the action.
type Receipt struct {
	*runtime.Receipt
	Result any `json:"result,omitempty"`
}

// Invoke runs action and responds its receipt. Reverted receipts are responded
// with the status mapped from their kind.
func Invoke(w http.ResponseWriter, req *http.Request, rt *runtime.Runtime, inv runtime.Invocation, action runtime.Action, result func() any) error {
	receipt, err := rt.Invoke(req.Context(), inv, action)
	if err != nil {
		return err
	}
	if receipt.Reverted {
		return WriteJSONStatus(w, StatusOf(receipt.Kind), &Receipt{Receipt: receipt})
	}
	out := &Receipt{Receipt: receipt}
	if result != nil {
		out.Result = result()
	}
	return WriteJSON(w, out)
}

// ParseAddress parses the named path variable as an address.
func ParseAddress(req *http.Request, name string) (thor.Address, error) {
	addr, err := thor.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return thor.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

// ParseAsset parses an asset key such as "BASE" or "UNSTAKE-1f".
func ParseAsset(s string) (balance.AssetKey, error) {
	var key balance.AssetKey
	if err := key.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return key, BadRequest(errors.WithMessage(err, "asset"))
	}
	return key, nil
}
