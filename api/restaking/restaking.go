// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restaking

import (
	"math/big"
	"net/http"
	"sort"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

// operation runs one request against the ledger. The returned func, if any,
// yields the result once the invocation committed.
type operation func(r *restaking.Restaking, req *Request, tokens []balance.Payment) (func() any, error)

func requireValidator(req *Request) (thor.Address, error) {
	if req.Validator == nil {
		return thor.Address{}, reverts.New(reverts.InvalidArgument, "validator required")
	}
	return *req.Validator, nil
}

func requireMax(req *Request) (*big.Int, error) {
	if req.Max == nil {
		return nil, reverts.New(reverts.InvalidArgument, "max required")
	}
	return utils.Big(req.Max), nil
}

func unbonded(b *balance.Balance) func() any {
	return func() any { return utils.NewPayments(b.List()) }
}

var operations = map[string]operation{
	"init": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		if req.Owner == nil {
			return nil, reverts.New(reverts.InvalidArgument, "owner required")
		}
		return nil, r.Init(*req.Owner)
	},
	"addToken": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		if req.Rate == nil {
			return nil, reverts.New(reverts.InvalidArgument, "rate required")
		}
		return nil, r.AddToken(req.Token, utils.Big(req.Rate), req.Decimals)
	},
	"removeToken": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.RemoveToken(req.Token)
	},
	"setUnbondEpochs": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.SetUnbondEpochs(req.Epochs)
	},
	"deposit": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.Deposit()
	},
	"withdraw": func(r *restaking.Restaking, _ *Request, tokens []balance.Payment) (func() any, error) {
		return nil, r.Withdraw(tokens)
	},
	"withdrawAll": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.WithdrawAll()
	},
	"delegateToValidator": func(r *restaking.Restaking, req *Request, tokens []balance.Payment) (func() any, error) {
		validator, err := requireValidator(req)
		if err != nil {
			return nil, err
		}
		return nil, r.DelegateToValidator(validator, tokens)
	},
	"revokeFromValidator": func(r *restaking.Restaking, req *Request, tokens []balance.Payment) (func() any, error) {
		validator, err := requireValidator(req)
		if err != nil {
			return nil, err
		}
		return nil, r.RevokeFromValidator(validator, tokens)
	},
	"delegateForSovereign": func(r *restaking.Restaking, req *Request, tokens []balance.Payment) (func() any, error) {
		return nil, r.DelegateForSovereign(req.Sovereign, tokens)
	},
	"revokeFromSovereign": func(r *restaking.Restaking, req *Request, tokens []balance.Payment) (func() any, error) {
		return nil, r.RevokeFromSovereign(req.Sovereign, tokens)
	},
	"unbondToCaller": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		b, err := r.UnbondToCaller()
		if err != nil {
			return nil, err
		}
		return unbonded(b), nil
	},
	"unbondToLedger": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		b, err := r.UnbondToLedger()
		if err != nil {
			return nil, err
		}
		return unbonded(b), nil
	},
	"registerValidator": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.RegisterValidator(req.Name)
	},
	"setFee": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.SetFee(req.Fee)
	},
	"setMaxDelegation": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		maxTotal, err := requireMax(req)
		if err != nil {
			return nil, err
		}
		return nil, r.SetMaxDelegation(maxTotal)
	},
	"addOwnDelegation": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.AddOwnDelegation()
	},
	"registerSovereign": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.RegisterSovereign(req.Name, req.Description)
	},
	"unregisterSovereign": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.UnregisterSovereign()
	},
	"setMaxRestakingCap": func(r *restaking.Restaking, req *Request, _ []balance.Payment) (func() any, error) {
		maxTotal, err := requireMax(req)
		if err != nil {
			return nil, err
		}
		return nil, r.SetMaxRestakingCap(maxTotal)
	},
	"addOwnSecurityFunds": func(r *restaking.Restaking, _ *Request, _ []balance.Payment) (func() any, error) {
		return nil, r.AddOwnSecurityFunds()
	},
}

// Operations lists the names of the operations served under /operations.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Restaking struct {
	rt   *runtime.Runtime
	addr thor.Address
}

func New(rt *runtime.Runtime, addr thor.Address) *Restaking {
	return &Restaking{rt, addr}
}

func (rs *Restaking) handleOperation(name string, op operation) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body Request
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		tokens, err := utils.Payments(body.Tokens)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "tokens"))
		}
		inv, err := body.Invocation(name)
		if err != nil {
			return utils.BadRequest(err)
		}
		var result func() any
		return utils.Invoke(w, req, rs.rt, inv, func(env *xenv.Environment) (err error) {
			result, err = op(restaking.New(rs.addr, env), &body, tokens)
			return err
		}, func() any {
			if result == nil {
				return nil
			}
			return result()
		})
	}
}

func (rs *Restaking) view(fn func(r *restaking.Restaking) error) error {
	return utils.Revert(rs.rt.View(func(env *xenv.Environment) error {
		return fn(restaking.New(rs.addr, env))
	}))
}

func (rs *Restaking) handleGetConfig(w http.ResponseWriter, _ *http.Request) error {
	var cfg Config
	if err := rs.view(func(r *restaking.Restaking) error {
		owner, err := r.Owner()
		if err != nil {
			return err
		}
		cfg.Owner = owner
		cfg.UnbondEpochs = r.UnbondEpochs()
		tokens, err := r.Tokens()
		if err != nil {
			return err
		}
		cfg.Tokens = make([]Token, 0, len(tokens))
		for _, token := range tokens {
			rate, decimals, err := r.Price(token)
			if err != nil {
				return err
			}
			cfg.Tokens = append(cfg.Tokens, Token{token, (*math.HexOrDecimal256)(rate), decimals})
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &cfg)
}

func (rs *Restaking) handleGetUser(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.ParseAddress(req, "address")
	if err != nil {
		return err
	}
	var user *User
	if err := rs.view(func(r *restaking.Restaking) error {
		tokens, err := r.UserTokens(addr)
		if err != nil {
			return err
		}
		buckets, err := r.UnbondBuckets(addr)
		if err != nil {
			return err
		}
		user = newUser(tokens, buckets)
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, user)
}

func (rs *Restaking) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.ParseAddress(req, "address")
	if err != nil {
		return err
	}
	var v Validator
	if err := rs.view(func(r *restaking.Restaking) error {
		cfg, err := r.ValidatorConfig(addr)
		if err != nil {
			return err
		}
		total, err := r.TotalDelegated(addr)
		if err != nil {
			return err
		}
		delegators, err := r.Delegators(addr)
		if err != nil {
			return err
		}
		v = Validator{
			Name:           cfg.Name,
			Fee:            cfg.Fee,
			Capped:         cfg.Capped,
			MaxDelegation:  (*math.HexOrDecimal256)(cfg.Cap()),
			TotalDelegated: (*math.HexOrDecimal256)(total),
			Delegators:     delegators,
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &v)
}

func (rs *Restaking) handleGetValidatorDelegation(w http.ResponseWriter, req *http.Request) error {
	validator, err := utils.ParseAddress(req, "address")
	if err != nil {
		return err
	}
	user, err := utils.ParseAddress(req, "user")
	if err != nil {
		return err
	}
	var out []utils.Payment
	if err := rs.view(func(r *restaking.Restaking) error {
		b, err := r.DelegatedBy(user, validator)
		if err != nil {
			return err
		}
		out = utils.NewPayments(b.List())
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (rs *Restaking) handleGetSovereign(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.ParseAddress(req, "address")
	if err != nil {
		return err
	}
	var s Sovereign
	if err := rs.view(func(r *restaking.Restaking) error {
		info, err := r.SovereignInfo(addr)
		if err != nil {
			return err
		}
		total, err := r.SovereignTotal(info.Name)
		if err != nil {
			return err
		}
		s = Sovereign{
			Name:            info.Name,
			Description:     info.Description,
			Capped:          info.Capped,
			MaxRestakingCap: (*math.HexOrDecimal256)(info.Cap()),
			TotalRestaked:   (*math.HexOrDecimal256)(total),
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &s)
}

func (rs *Restaking) handleGetSovereignDelegation(w http.ResponseWriter, req *http.Request) error {
	user, err := utils.ParseAddress(req, "user")
	if err != nil {
		return err
	}
	name := mux.Vars(req)["name"]
	var out []utils.Payment
	if err := rs.view(func(r *restaking.Restaking) error {
		b, err := r.SovereignDelegatedBy(user, name)
		if err != nil {
			return err
		}
		out = utils.NewPayments(b.List())
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (rs *Restaking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	for _, name := range Operations() {
		sub.Path("/operations/" + name).
			Methods(http.MethodPost).
			Name("POST " + pathPrefix + "/operations/" + name).
			HandlerFunc(utils.WrapHandlerFunc(rs.handleOperation(name, operations[name])))
	}
	sub.Path("/config").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/config").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetConfig))
	sub.Path("/users/{address}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/users/{address}").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetUser))
	sub.Path("/validators/{address}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/validators/{address}").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetValidator))
	sub.Path("/validators/{address}/delegations/{user}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/validators/{address}/delegations/{user}").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetValidatorDelegation))
	sub.Path("/sovereigns/{address}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/sovereigns/{address}").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetSovereign))
	sub.Path("/sovereigns/{name}/delegations/{user}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/sovereigns/{name}/delegations/{user}").
		HandlerFunc(utils.WrapHandlerFunc(rs.handleGetSovereignDelegation))
}
