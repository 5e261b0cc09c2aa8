// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"context"
	"math/big"
	"sync"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/thor"
)

// Journal records committed invocations.
type Journal interface {
	Record(ctx context.Context, receipt *Receipt) error
}

// TransferEndpoint pays assets out of the ledger.
type TransferEndpoint interface {
	PayOut(ctx context.Context, to thor.Address, payments []balance.Payment) error
}

// TransferEndpointFunc adapts a func to TransferEndpoint.
type TransferEndpointFunc func(ctx context.Context, to thor.Address, payments []balance.Payment) error

func (f TransferEndpointFunc) PayOut(ctx context.Context, to thor.Address, payments []balance.Payment) error {
	return f(ctx, to, payments)
}

// NewLogJournal journals receipts into db.
func NewLogJournal(db *logdb.LogDB) Journal {
	return &logJournal{db}
}

type logJournal struct {
	db *logdb.LogDB
}

func (j *logJournal) Record(ctx context.Context, receipt *Receipt) error {
	batch := j.db.NewBatch(receipt.ID, receipt.Block)
	for _, ev := range receipt.Outbox.Events {
		batch.AddEvent(ev)
	}
	for _, tr := range receipt.Outbox.Transfers {
		batch.AddTransfer(tr)
	}
	return batch.Commit(ctx)
}

// Payouts tallies everything paid out, per recipient and asset.
type Payouts struct {
	mu       sync.Mutex
	received map[thor.Address]*balance.Balance
}

func NewPayouts() *Payouts {
	return &Payouts{received: make(map[thor.Address]*balance.Balance)}
}

func (p *Payouts) PayOut(_ context.Context, to thor.Address, payments []balance.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.received[to]
	if !ok {
		b = &balance.Balance{}
		p.received[to] = b
	}
	for _, payment := range payments {
		if err := b.Add(payment); err != nil {
			return err
		}
	}
	return nil
}

// Received returns the amount of asset paid out to addr.
func (p *Payouts) Received(addr thor.Address, asset balance.AssetKey) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.received[addr]; ok {
		return b.AmountOf(asset)
	}
	return new(big.Int)
}
