// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/restake/co"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var logger = log.WithContext("pkg", "remote")

// ResultFunc delivers the result of a call to target back to the contract that issued it.
type ResultFunc func(ctx context.Context, contract, target thor.Address, res Result) error

// RewardFunc pays rewards of target to contract.
type RewardFunc func(ctx context.Context, contract, target thor.Address, amount *big.Int) error

// Simulator is an in-process set of staking contracts.
// Calls are queued by Send and processed by Drain or Run.
type Simulator struct {
	OnResult ResultFunc
	OnReward RewardFunc

	mu       sync.Mutex
	queue    []xenv.Call
	failing  map[thor.Address]bool
	rewards  map[thor.Address]*big.Int
	staked   map[thor.Address]*big.Int
	unstaked map[thor.Address]*big.Int
	history  []xenv.Call
	signal   co.Signal
}

func NewSimulator() *Simulator {
	return &Simulator{
		failing:  make(map[thor.Address]bool),
		rewards:  make(map[thor.Address]*big.Int),
		staked:   make(map[thor.Address]*big.Int),
		unstaked: make(map[thor.Address]*big.Int),
	}
}

// SetFailing makes every call to target fail.
func (s *Simulator) SetFailing(target thor.Address, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[target] = failing
}

// SetReward sets what target pays on each rewards claim.
func (s *Simulator) SetReward(target thor.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[target] = new(big.Int).Set(amount)
}

// Staked returns the stake target holds.
func (s *Simulator) Staked(target thor.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return amountOf(s.staked, target)
}

// History returns every call received so far.
func (s *Simulator) History() []xenv.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]xenv.Call(nil), s.history...)
}

// Pending returns the number of queued calls.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Simulator) Send(_ context.Context, call xenv.Call) error {
	s.mu.Lock()
	s.queue = append(s.queue, call)
	s.history = append(s.history, call)
	s.mu.Unlock()
	s.signal.Broadcast()
	return nil
}

func (s *Simulator) pop() (xenv.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return xenv.Call{}, false
	}
	call := s.queue[0]
	s.queue = s.queue[1:]
	return call, true
}

// Drain processes queued calls, including those queued while draining.
func (s *Simulator) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		call, ok := s.pop()
		if !ok {
			return n, nil
		}
		if err := s.process(ctx, call); err != nil {
			return n, errors.Wrapf(err, "process %v call to %v", call.Kind, call.Target)
		}
		n++
	}
}

// Run drains the queue whenever calls arrive, until ctx is done.
func (s *Simulator) Run(ctx context.Context) {
	waiter := s.signal.NewWaiter()
	for {
		if _, err := s.Drain(ctx); err != nil {
			logger.Warn("failed to process remote call", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-waiter.C():
		}
	}
}

func amountOf(m map[thor.Address]*big.Int, addr thor.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// execute applies call to the simulated contract, returning the amount paid back.
func (s *Simulator) execute(call xenv.Call) (bool, *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing[call.Target] {
		return false, new(big.Int)
	}
	switch call.Kind {
	case xenv.CallStake:
		s.staked[call.Target] = new(big.Int).Add(amountOf(s.staked, call.Target), call.Value)
		return true, new(big.Int)
	case xenv.CallUnstake:
		staked := amountOf(s.staked, call.Target)
		if staked.Cmp(call.Value) < 0 {
			return false, new(big.Int)
		}
		s.staked[call.Target] = staked.Sub(staked, call.Value)
		s.unstaked[call.Target] = new(big.Int).Add(amountOf(s.unstaked, call.Target), call.Value)
		return true, new(big.Int)
	case xenv.CallWithdraw:
		amount := amountOf(s.unstaked, call.Target)
		delete(s.unstaked, call.Target)
		return true, amount
	case xenv.CallClaimRewards:
		return true, amountOf(s.rewards, call.Target)
	}
	return false, new(big.Int)
}

func (s *Simulator) process(ctx context.Context, call xenv.Call) error {
	ok, amount := s.execute(call)
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	metricRemoteCalls().AddWithLabel(1, map[string]string{"kind": call.Kind.String(), "outcome": outcome})
	logger.Debug("remote call processed", "kind", call.Kind, "target", call.Target, "handle", call.Handle, "ok", ok, "amount", amount)

	if call.Kind == xenv.CallClaimRewards {
		if !ok || amount.Sign() == 0 || s.OnReward == nil {
			return nil
		}
		return s.OnReward(ctx, call.From, call.Target, amount)
	}
	if s.OnResult == nil {
		return nil
	}
	return s.OnResult(ctx, call.From, call.Target, Result{Handle: Handle(call.Handle), OK: ok, Amount: amount})
}
