// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"
	"strings"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/delegation"
	"github.com/vechain/restake/builtin/identity"
	"github.com/vechain/restake/builtin/pricing"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/builtin/unbond"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var (
	logger = log.WithContext("pkg", "restaking")

	UnbondEpochs = solidity.NewConfigVariable("restaking-unbond-epochs", thor.UnbondPeriod)

	slotOwner    = thor.BytesToBytes32([]byte("restaking-owner"))
	slotBalances = thor.BytesToBytes32([]byte("restaking-balances"))
	slotUnbonds  = thor.BytesToBytes32([]byte("restaking-unbonds"))
)

// Restaking implements the restaking ledger: user deposits, delegation to
// validators and sovereign chains, and unbonding.
type Restaking struct {
	addr thor.Address
	env  *xenv.Environment
	sctx *solidity.Context

	owner   *solidity.Address
	users   *identity.Registry
	table   *pricing.Table
	ledger  *balance.Ledger
	unbonds *unbond.Queue

	validators          *identity.Registry
	validatorConfigs    *solidity.Mapping[identity.ID, *ValidatorConfig]
	validatorNames      *solidity.Mapping[nameKey, identity.ID]
	validatorDelegation *delegation.Service

	sovereigns          *identity.Registry
	sovereignInfos      *solidity.Mapping[identity.ID, *SovereignInfo]
	sovereignNames      *solidity.Mapping[nameKey, identity.ID]
	sovereignDelegation *delegation.Service
}

type nameKey string

func (k nameKey) Bytes() []byte { return []byte(k) }

// New binds the restaking contract at addr to the invocation env.
func New(addr thor.Address, env *xenv.Environment) *Restaking {
	sctx := env.Context(addr)
	table := pricing.New(sctx)
	return &Restaking{
		addr: addr,
		env:  env,
		sctx: sctx,

		owner:   solidity.NewAddress(sctx, slotOwner),
		users:   identity.New(sctx, "users"),
		table:   table,
		ledger:  balance.NewLedger(sctx, slotBalances),
		unbonds: unbond.New(sctx, slotUnbonds),

		validators:          identity.New(sctx, "validators"),
		validatorConfigs:    solidity.NewMapping[identity.ID, *ValidatorConfig](sctx, thor.BytesToBytes32([]byte("validator-configs"))),
		validatorNames:      solidity.NewMapping[nameKey, identity.ID](sctx, thor.BytesToBytes32([]byte("validator-names"))),
		validatorDelegation: delegation.New(sctx, "validator-delegations", table),

		sovereigns:          identity.New(sctx, "sovereigns"),
		sovereignInfos:      solidity.NewMapping[identity.ID, *SovereignInfo](sctx, thor.BytesToBytes32([]byte("sovereign-infos"))),
		sovereignNames:      solidity.NewMapping[nameKey, identity.ID](sctx, thor.BytesToBytes32([]byte("sovereign-names"))),
		sovereignDelegation: delegation.New(sctx, "sovereign-delegations", table),
	}
}

func (r *Restaking) Address() thor.Address { return r.addr }

// atomic runs fn, rolling back its storage writes if it fails.
func (r *Restaking) atomic(fn func() error) error {
	checkpoint := r.env.State().NewCheckpoint()
	if err := fn(); err != nil {
		r.env.State().RevertTo(checkpoint)
		return err
	}
	return nil
}

func (r *Restaking) emit(name string, subject thor.Address, data map[string]string) {
	r.env.Emit(r.addr, name, subject, data)
}

func formatPayments(payments []balance.Payment) string {
	parts := make([]string, 0, len(payments))
	for _, p := range payments {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

//
// Owner
//

// Init sets the owner once.
func (r *Restaking) Init(owner thor.Address) error {
	current, err := r.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.New(reverts.PreconditionFailed, "already initialized")
	}
	if owner.IsZero() {
		return reverts.New(reverts.InvalidArgument, "zero owner")
	}
	return r.owner.Set(&owner, true)
}

func (r *Restaking) Owner() (thor.Address, error) {
	return r.owner.Get()
}

func (r *Restaking) requireOwner() error {
	owner, err := r.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || owner != r.env.Caller() {
		return reverts.New(reverts.Unauthorized, "only owner")
	}
	return nil
}

// AddToken whitelists token at rate / 10^decimals base units per token unit.
func (r *Restaking) AddToken(token string, rate *big.Int, decimals uint8) error {
	if err := r.requireOwner(); err != nil {
		return err
	}
	if err := r.table.Add(token, rate, decimals); err != nil {
		return err
	}
	r.emit("TokenAdded", r.env.Caller(), map[string]string{"token": token, "rate": rate.String()})
	return nil
}

// RemoveToken delists token. Balances already holding it are untouched.
func (r *Restaking) RemoveToken(token string) error {
	if err := r.requireOwner(); err != nil {
		return err
	}
	if err := r.table.Remove(token); err != nil {
		return err
	}
	r.emit("TokenRemoved", r.env.Caller(), map[string]string{"token": token})
	return nil
}

// SetUnbondEpochs changes the unbonding delay. Zero restores the default.
func (r *Restaking) SetUnbondEpochs(n uint64) error {
	if err := r.requireOwner(); err != nil {
		return err
	}
	UnbondEpochs.Override(r.sctx, n)
	logger.Debug("unbond epochs set", "epochs", UnbondEpochs.Get(r.sctx))
	return nil
}

func (r *Restaking) UnbondEpochs() uint64 {
	return UnbondEpochs.Get(r.sctx)
}

// Tokens lists the whitelisted tokens.
func (r *Restaking) Tokens() ([]string, error) {
	return r.table.List()
}

func (r *Restaking) Price(token string) (rate *big.Int, decimals uint8, err error) {
	if rate, err = r.table.RateFor(token); err != nil {
		return nil, 0, err
	}
	if decimals, err = r.table.DecimalsFor(token); err != nil {
		return nil, 0, err
	}
	return rate, decimals, nil
}
