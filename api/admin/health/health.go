// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"sync"
	"time"

	"github.com/vechain/restake/runtime"
)

// Backlog reports calls waiting for their remote result.
type Backlog interface {
	Pending() int
}

type Invocation struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type Status struct {
	Healthy        bool        `json:"healthy"`
	Block          uint64      `json:"block"`
	Epoch          uint64      `json:"epoch"`
	LastInvocation *Invocation `json:"lastInvocation"`
	PendingCalls   int         `json:"pendingCalls"`
}

type Health struct {
	lock    sync.RWMutex
	clock   runtime.Clock
	backlog Backlog
	last    *Invocation
}

func New(clock runtime.Clock, backlog Backlog) *Health {
	return &Health{clock: clock, backlog: backlog}
}

// Run tracks committed invocations of rt until ctx is done.
func (h *Health) Run(ctx context.Context, rt *runtime.Runtime) {
	ch := make(chan *runtime.Receipt, 16)
	sub := rt.SubscribeReceipts(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Err():
			return
		case receipt := <-ch:
			h.NewInvocation(receipt)
		}
	}
}

func (h *Health) NewInvocation(receipt *runtime.Receipt) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.last = &Invocation{ID: receipt.ID, Action: receipt.Action, Timestamp: time.Now()}
}

// Status reports unhealthy once more than maxPendingCalls wait for a remote result.
func (h *Health) Status(maxPendingCalls int) (*Status, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	s := &Status{
		Block: h.clock.Block(),
		Epoch: h.clock.Epoch(),
	}
	if h.last != nil {
		last := *h.last
		s.LastInvocation = &last
	}
	if h.backlog != nil {
		s.PendingCalls = h.backlog.Pending()
	}
	s.Healthy = s.PendingCalls <= maxPendingCalls
	return s, nil
}
