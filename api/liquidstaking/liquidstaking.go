// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"
	"net/http"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/builtin/liquidstaking"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

type operation func(ls *liquidstaking.LiquidStaking, req *Request) (any, error)

func requireContract(req *Request) (thor.Address, error) {
	if req.Contract == nil {
		return thor.Address{}, reverts.New(reverts.InvalidArgument, "contract required")
	}
	return *req.Contract, nil
}

func capacity(req *Request) (totalStaked, limit *big.Int) {
	totalStaked = utils.Big(req.TotalStaked)
	if totalStaked == nil {
		totalStaked = new(big.Int)
	}
	return totalStaked, utils.Big(req.Limit)
}

func handle(h remote.Handle, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return &Handle{uint64(h)}, nil
}

var operations = map[string]operation{
	"init": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		if req.Owner == nil {
			return nil, reverts.New(reverts.InvalidArgument, "owner required")
		}
		return nil, ls.Init(*req.Owner)
	},
	"setActive": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		return nil, ls.SetActive(req.Active)
	},
	"whitelistContract": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		contract, err := requireContract(req)
		if err != nil {
			return nil, err
		}
		if req.Admin == nil {
			return nil, reverts.New(reverts.InvalidArgument, "admin required")
		}
		totalStaked, limit := capacity(req)
		return nil, ls.WhitelistContract(contract, *req.Admin, totalStaked, limit, req.Nodes, req.Yield)
	},
	"changeAdmin": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		contract, err := requireContract(req)
		if err != nil {
			return nil, err
		}
		if req.Admin == nil {
			return nil, reverts.New(reverts.InvalidArgument, "admin required")
		}
		return nil, ls.ChangeAdmin(contract, *req.Admin)
	},
	"changeParams": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		contract, err := requireContract(req)
		if err != nil {
			return nil, err
		}
		totalStaked, limit := capacity(req)
		if limit == nil {
			return nil, reverts.New(reverts.InvalidArgument, "limit required")
		}
		return nil, ls.ChangeParams(contract, totalStaked, limit, req.Nodes, req.Yield)
	},
	"setMaxContracts": func(ls *liquidstaking.LiquidStaking, req *Request) (any, error) {
		return nil, ls.SetMaxContracts(req.MaxContracts)
	},
	"addLiquidity": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		return handle(ls.AddLiquidity())
	},
	"removeLiquidity": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		return handle(ls.RemoveLiquidity())
	},
	"unbondTokens": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		return handle(ls.UnbondTokens())
	},
	"claimRewards": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		completion, err := ls.ClaimRewards()
		if err != nil {
			return nil, err
		}
		return utils.M{"completion": completion.String()}, nil
	},
	"recomputeTokenReserve": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		added, err := ls.RecomputeTokenReserve()
		if err != nil {
			return nil, err
		}
		return utils.M{"added": (*math.HexOrDecimal256)(added)}, nil
	},
	"delegateRewards": func(ls *liquidstaking.LiquidStaking, _ *Request) (any, error) {
		return handle(ls.DelegateRewards())
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

type LiquidStaking struct {
	rt   *runtime.Runtime
	addr thor.Address
}

func New(rt *runtime.Runtime, addr thor.Address) *LiquidStaking {
	return &LiquidStaking{rt, addr}
}

func (l *LiquidStaking) handleOperation(name string, op operation) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body Request
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		inv, err := body.Invocation(name)
		if err != nil {
			return utils.BadRequest(err)
		}
		var result any
		return utils.Invoke(w, req, l.rt, inv, func(env *xenv.Environment) (err error) {
			result, err = op(liquidstaking.New(l.addr, env), &body)
			return err
		}, func() any { return result })
	}
}

func (l *LiquidStaking) view(fn func(ls *liquidstaking.LiquidStaking) error) error {
	return utils.Revert(l.rt.View(func(env *xenv.Environment) error {
		return fn(liquidstaking.New(l.addr, env))
	}))
}

func (l *LiquidStaking) handleGetPool(w http.ResponseWriter, _ *http.Request) error {
	var pool *Pool
	if err := l.view(func(ls *liquidstaking.LiquidStaking) error {
		info, err := ls.Pool()
		if err != nil {
			return err
		}
		pool = newPool(info)
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, pool)
}

func (l *LiquidStaking) handleGetValue(w http.ResponseWriter, req *http.Request) error {
	shares, ok := math.ParseBig256(req.URL.Query().Get("shares"))
	if !ok {
		return utils.BadRequest(errors.New("shares: invalid number"))
	}
	var value *big.Int
	if err := l.view(func(ls *liquidstaking.LiquidStaking) (err error) {
		value, err = ls.LsValueForShares(shares)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"value": (*math.HexOrDecimal256)(value)})
}

func (l *LiquidStaking) handleGetClaim(w http.ResponseWriter, _ *http.Request) error {
	var c Claim
	if err := l.view(func(ls *liquidstaking.LiquidStaking) error {
		status, err := ls.ClaimStatus()
		if err != nil {
			return err
		}
		op, err := ls.ClaimOperation()
		if err != nil {
			return err
		}
		c = Claim{
			Phase:           status.Phase,
			LastClaimEpoch:  status.LastClaimEpoch,
			LastClaimBlock:  status.LastClaimBlock,
			SnapshotReserve: (*math.HexOrDecimal256)(status.SnapshotReserve),
			Operation:       op.Phase,
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &c)
}

func (l *LiquidStaking) handleGetDirectory(w http.ResponseWriter, _ *http.Request) error {
	var out []Contract
	if err := l.view(func(ls *liquidstaking.LiquidStaking) error {
		contracts, err := ls.Directory()
		if err != nil {
			return err
		}
		out = make([]Contract, 0, len(contracts))
		for _, c := range contracts {
			out = append(out, newContract(c))
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (l *LiquidStaking) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 0, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	var pos *Position
	if err := l.view(func(ls *liquidstaking.LiquidStaking) error {
		p, err := ls.Position(id)
		if err != nil {
			return err
		}
		pos = &Position{
			ID:           id,
			Asset:        liquidstaking.PositionAsset(id).String(),
			Contract:     p.Contract,
			UnstakeEpoch: p.UnstakeEpoch,
			UnbondEpoch:  p.UnbondEpoch,
			Amount:       (*math.HexOrDecimal256)(p.Amount),
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, pos)
}

func (l *LiquidStaking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	for _, name := range Operations() {
		sub.Path("/operations/" + name).
			Methods(http.MethodPost).
			Name("POST " + pathPrefix + "/operations/" + name).
			HandlerFunc(utils.WrapHandlerFunc(l.handleOperation(name, operations[name])))
	}
	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/pool").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetPool))
	sub.Path("/value").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/value").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetValue))
	sub.Path("/claim").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/claim").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetClaim))
	sub.Path("/directory").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/directory").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetDirectory))
	sub.Path("/positions/{id}").
		Methods(http.MethodGet).
		Name("GET " + pathPrefix + "/positions/{id}").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetPosition))
}
