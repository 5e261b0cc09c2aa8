// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

type EventMessage struct {
	InvocationID string            `json:"invocationID"`
	Index        uint32            `json:"index"`
	BlockNumber  uint64            `json:"blockNumber"`
	Contract     thor.Address      `json:"contract"`
	Name         string            `json:"name"`
	Subject      thor.Address      `json:"subject"`
	Data         map[string]string `json:"data,omitempty"`
}

type TransferMessage struct {
	InvocationID string          `json:"invocationID"`
	BlockNumber  uint64          `json:"blockNumber"`
	Sender       thor.Address    `json:"sender"`
	Recipient    thor.Address    `json:"recipient"`
	Payments     []utils.Payment `json:"payments"`
}

func newTransferMessage(r *runtime.Receipt, tr xenv.Transfer) *TransferMessage {
	return &TransferMessage{
		InvocationID: r.ID,
		BlockNumber:  r.Block,
		Sender:       tr.From,
		Recipient:    tr.To,
		Payments:     utils.NewPayments(tr.Payments),
	}
}
