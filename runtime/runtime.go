// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/gascharger"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/cache"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/state"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var logger = log.WithContext("pkg", "runtime")

const defaultReceiptCacheSize = 1024

// Action is the body of an invocation. Any error reverts it.
type Action func(env *xenv.Environment) error

// Invocation describes who calls, with which payments and budget.
type Invocation struct {
	Action   string
	Caller   thor.Address
	Payments []balance.Payment
	Budget   uint64 // zero for the runtime default
}

// Receipt is the outcome of an invocation.
type Receipt struct {
	ID       string        `json:"id"`
	Action   string        `json:"action"`
	Caller   thor.Address  `json:"caller"`
	Block    uint64        `json:"block"`
	Epoch    uint64        `json:"epoch"`
	GasUsed  uint64        `json:"gasUsed"`
	Reverted bool          `json:"reverted"`
	Error    string        `json:"error,omitempty"`
	Kind     reverts.Kind  `json:"kind,omitempty"`
	Outbox   xenv.Outbox   `json:"outbox"`
	Elapsed  time.Duration `json:"-"`

	err error
}

// Err returns the error that reverted the invocation.
func (r *Receipt) Err() error {
	return r.err
}

// Options configures a Runtime. Nil endpoints are skipped.
type Options struct {
	Budget           uint64
	ReceiptCacheSize int
	Transfers        TransferEndpoint
	Remote           remote.Endpoint
	Journal          Journal
}

// Runtime executes invocations one at a time, each atomically.
type Runtime struct {
	mu       sync.Mutex
	state    *state.State
	clock    Clock
	opts     Options
	receipts *cache.LRU[string, *Receipt]

	feed  event.Feed
	scope event.SubscriptionScope
}

// New create a Runtime object.
func New(st *state.State, clock Clock, opts Options) (*Runtime, error) {
	if opts.Budget == 0 {
		opts.Budget = thor.DefaultInvocationBudget
	}
	if opts.ReceiptCacheSize <= 0 {
		opts.ReceiptCacheSize = defaultReceiptCacheSize
	}
	receipts, err := cache.NewLRU[string, *Receipt](opts.ReceiptCacheSize)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		state:    st,
		clock:    clock,
		opts:     opts,
		receipts: receipts,
	}, nil
}

func (rt *Runtime) State() *state.State { return rt.state }
func (rt *Runtime) Clock() Clock        { return rt.clock }
func (rt *Runtime) Budget() uint64      { return rt.opts.Budget }

// SetRemote sets the remote endpoint. Call it before the first invocation.
func (rt *Runtime) SetRemote(endpoint remote.Endpoint) {
	rt.opts.Remote = endpoint
}

// SubscribeReceipts delivers receipts of committed invocations.
func (rt *Runtime) SubscribeReceipts(ch chan *Receipt) event.Subscription {
	return rt.scope.Track(rt.feed.Subscribe(ch))
}

// Receipt returns a recent receipt by id.
func (rt *Runtime) Receipt(id string) (*Receipt, bool) {
	return rt.receipts.Get(id)
}

// Receipts returns the cached receipts.
func (rt *Runtime) Receipts() []*Receipt {
	return rt.receipts.Values()
}

// Close unsubscribes everyone.
func (rt *Runtime) Close() {
	rt.scope.Close()
}

func (rt *Runtime) execute(inv Invocation, action Action) (*Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	budget := inv.Budget
	if budget == 0 {
		budget = rt.opts.Budget
	}
	charger := gascharger.New(budget)
	blockCtx := blockContext(rt.clock)
	env := xenv.New(rt.state, blockCtx, inv.Caller, inv.Payments, charger)

	receipt := &Receipt{
		ID:     uuid.New(),
		Action: inv.Action,
		Caller: inv.Caller,
		Block:  blockCtx.Number,
		Epoch:  blockCtx.Epoch,
	}

	checkpoint := rt.state.NewCheckpoint()
	if err := action(env); err != nil {
		rt.state.RevertTo(checkpoint)
		receipt.GasUsed = charger.TotalGas()
		receipt.Reverted = true
		receipt.Error = err.Error()
		receipt.Kind = reverts.KindOf(err)
		receipt.err = err
		if !reverts.IsRevertErr(err) {
			logger.Warn("invocation failed", "action", inv.Action, "caller", inv.Caller, "err", err)
		}
		return receipt, nil
	}
	if err := rt.state.Stage().Commit(); err != nil {
		rt.state.RevertTo(checkpoint)
		return nil, errors.Wrap(err, "commit state")
	}
	receipt.GasUsed = charger.TotalGas()
	receipt.Outbox = *env.Outbox()
	return receipt, nil
}

// Invoke runs action atomically. The returned error reports infrastructure
// failures only, a reverted action yields a receipt with Reverted set.
func (rt *Runtime) Invoke(ctx context.Context, inv Invocation, action Action) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	receipt, err := rt.execute(inv, action)
	if err != nil {
		metricInvocations().AddWithLabel(1, map[string]string{"action": inv.Action, "outcome": "error"})
		return nil, err
	}
	receipt.Elapsed = time.Since(start)
	rt.receipts.Add(receipt.ID, receipt)

	outcome := "committed"
	if receipt.Reverted {
		outcome = "reverted"
	}
	metricInvocations().AddWithLabel(1, map[string]string{"action": inv.Action, "outcome": outcome})
	metricComputeUsed().ObserveWithLabels(int64(receipt.GasUsed/1000), map[string]string{"action": inv.Action})
	logger.Debug("invocation done", "action", inv.Action, "id", receipt.ID, "caller", inv.Caller, "gas", receipt.GasUsed, "outcome", outcome, "elapsed", receipt.Elapsed)

	if receipt.Reverted {
		return receipt, nil
	}
	if err := rt.deliver(ctx, receipt); err != nil {
		return receipt, err
	}
	rt.feed.Send(receipt)
	return receipt, nil
}

// deliver hands the effects of a committed invocation to the endpoints.
func (rt *Runtime) deliver(ctx context.Context, receipt *Receipt) error {
	if rt.opts.Transfers != nil {
		for _, tr := range receipt.Outbox.Transfers {
			if err := rt.opts.Transfers.PayOut(ctx, tr.To, tr.Payments); err != nil {
				return errors.Wrapf(err, "pay out to %v", tr.To)
			}
		}
	}
	if rt.opts.Remote != nil {
		for _, call := range receipt.Outbox.Calls {
			if err := rt.opts.Remote.Send(ctx, call); err != nil {
				return errors.Wrapf(err, "send %v call to %v", call.Kind, call.Target)
			}
		}
	}
	if rt.opts.Journal != nil {
		if err := rt.opts.Journal.Record(ctx, receipt); err != nil {
			return errors.Wrap(err, "journal invocation")
		}
	}
	return nil
}

// View runs fn against the current state and discards every change.
func (rt *Runtime) View(fn Action) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	env := xenv.New(rt.state, blockContext(rt.clock), thor.Address{}, nil, nil)
	checkpoint := rt.state.NewCheckpoint()
	defer rt.state.RevertTo(checkpoint)
	return fn(env)
}

// OnResult delivers the result of a remote call to the liquid staking contract that issued it.
func (rt *Runtime) OnResult(ctx context.Context, contract, target thor.Address, res remote.Result) error {
	receipt, err := rt.Invoke(ctx, Invocation{Action: "onResult", Caller: target}, func(env *xenv.Environment) error {
		return liquidstaking.New(contract, env).OnResult(res)
	})
	if err != nil {
		return err
	}
	if receipt.Reverted {
		return errors.Wrapf(receipt.Err(), "result of handle %d", res.Handle)
	}
	return nil
}

// OnReward pays claimed rewards of target to the liquid staking contract.
func (rt *Runtime) OnReward(ctx context.Context, contract, target thor.Address, amount *big.Int) error {
	inv := Invocation{
		Action:   "receiveRewards",
		Caller:   target,
		Payments: []balance.Payment{balance.Base(amount)},
	}
	receipt, err := rt.Invoke(ctx, inv, func(env *xenv.Environment) error {
		return liquidstaking.New(contract, env).ReceiveRewards()
	})
	if err != nil {
		return err
	}
	if receipt.Reverted {
		return errors.Wrapf(receipt.Err(), "rewards from %v", target)
	}
	return nil
}
