// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math/big"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/thor"
)

// Event is a journaled audit event.
type Event struct {
	InvocationID string
	Index        uint32
	BlockNumber  uint64
	Contract     thor.Address
	Name         string
	Subject      thor.Address
	Data         map[string]string
}

// Transfer is a journaled payout of one asset.
type Transfer struct {
	InvocationID string
	Index        uint32
	BlockNumber  uint64
	Sender       thor.Address
	Recipient    thor.Address
	Asset        balance.AssetKey
	Amount       *big.Int
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds block numbers, To below From means open ended.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

type EventCriteria struct {
	Contract *thor.Address
	Name     string
	Subject  *thor.Address
}

// EventFilter selects events matching any of CriteriaSet.
type EventFilter struct {
	InvocationID string
	CriteriaSet  []*EventCriteria
	Range        *Range
	Options      *Options
	Order        Order // default asc
}

type TransferCriteria struct {
	Sender    *thor.Address
	Recipient *thor.Address
	Asset     *balance.AssetKey
}

// TransferFilter selects transfers matching any of CriteriaSet.
type TransferFilter struct {
	InvocationID string
	CriteriaSet  []*TransferCriteria
	Range        *Range
	Options      *Options
	Order        Order // default asc
}
