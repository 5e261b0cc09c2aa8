// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidstaking

import (
	"math/big"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/claim"
	"github.com/vechain/restake/builtin/directory"
	"github.com/vechain/restake/builtin/remote"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

const (
	// LsToken is the fungible share of the pool.
	LsToken = "LS"
	// UnstakeToken carries unstake positions, the nonce is the position id.
	UnstakeToken = "UNSTAKE"
)

var (
	logger = log.WithContext("pkg", "liquidstaking")

	UnbondPeriod = solidity.NewConfigVariable("ls-unbond-period", thor.UnbondPeriod)

	slotOwner          = thor.BytesToBytes32([]byte("ls-owner"))
	slotActive         = thor.BytesToBytes32([]byte("ls-active"))
	slotLsSupply       = thor.BytesToBytes32([]byte("ls-supply"))
	slotVirtualReserve = thor.BytesToBytes32([]byte("ls-virtual-reserve"))
	slotTotalWithdrawn = thor.BytesToBytes32([]byte("ls-total-withdrawn"))
	slotUnstakeSupply  = thor.BytesToBytes32([]byte("ls-unstake-supply"))
	slotNativeBalance  = thor.BytesToBytes32([]byte("ls-native-balance"))
	slotPositionCount  = thor.BytesToBytes32([]byte("ls-position-counter"))
	slotPositions      = thor.BytesToBytes32([]byte("ls-positions"))
)

// LiquidStaking pools base asset into whitelisted delegation contracts and
// issues LS shares against it.
type LiquidStaking struct {
	addr thor.Address
	env  *xenv.Environment
	sctx *solidity.Context

	owner     *solidity.Address
	active    *solidity.Raw[bool]
	directory *directory.Directory
	cycle     *claim.Cycle
	remote    *remote.Dispatcher
	pool      *pool

	totalWithdrawn *solidity.Uint256
	unstakeSupply  *solidity.Uint256
	nativeBalance  *solidity.Uint256

	positionCount *solidity.Raw[uint64]
	positions     *solidity.Mapping[positionID, *Position]
}

// New binds the liquid staking contract at addr to the invocation env.
func New(addr thor.Address, env *xenv.Environment) *LiquidStaking {
	sctx := env.Context(addr)
	return &LiquidStaking{
		addr: addr,
		env:  env,
		sctx: sctx,

		owner:     solidity.NewAddress(sctx, slotOwner),
		active:    solidity.NewRaw[bool](sctx, slotActive),
		directory: directory.New(sctx),
		cycle:     claim.New(sctx),
		remote:    remote.NewDispatcher(sctx),
		pool: &pool{
			supply:  solidity.NewUint256(sctx, slotLsSupply),
			reserve: solidity.NewUint256(sctx, slotVirtualReserve),
		},

		totalWithdrawn: solidity.NewUint256(sctx, slotTotalWithdrawn),
		unstakeSupply:  solidity.NewUint256(sctx, slotUnstakeSupply),
		nativeBalance:  solidity.NewUint256(sctx, slotNativeBalance),

		positionCount: solidity.NewRaw[uint64](sctx, slotPositionCount),
		positions:     solidity.NewMapping[positionID, *Position](sctx, slotPositions),
	}
}

func (ls *LiquidStaking) Address() thor.Address { return ls.addr }

// atomic runs fn, rolling back its storage writes if it fails.
func (ls *LiquidStaking) atomic(fn func() error) error {
	checkpoint := ls.env.State().NewCheckpoint()
	if err := fn(); err != nil {
		ls.env.State().RevertTo(checkpoint)
		return err
	}
	return nil
}

func (ls *LiquidStaking) emit(name string, subject thor.Address, data map[string]string) {
	ls.env.Emit(ls.addr, name, subject, data)
}

func (ls *LiquidStaking) pay(to thor.Address, payments ...balance.Payment) {
	ls.env.Transfer(ls.addr, to, payments...)
}

// Init sets the owner and opens the claim state at the current epoch.
// The ledger starts inactive.
func (ls *LiquidStaking) Init(owner thor.Address) error {
	current, err := ls.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.New(reverts.PreconditionFailed, "already initialized")
	}
	if owner.IsZero() {
		return reverts.New(reverts.InvalidArgument, "zero owner")
	}
	if err := ls.owner.Set(&owner, true); err != nil {
		return err
	}
	return ls.cycle.Init(ls.env.BlockContext().Epoch)
}

func (ls *LiquidStaking) Owner() (thor.Address, error) {
	return ls.owner.Get()
}

func (ls *LiquidStaking) requireOwner() error {
	owner, err := ls.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || owner != ls.env.Caller() {
		return reverts.New(reverts.Unauthorized, "only owner")
	}
	return nil
}

func (ls *LiquidStaking) IsActive() (bool, error) {
	return ls.active.Get()
}

func (ls *LiquidStaking) requireActive() error {
	active, err := ls.active.Get()
	if err != nil {
		return err
	}
	if !active {
		return reverts.New(reverts.PreconditionFailed, "not active")
	}
	return nil
}

// SetActive opens or closes the ledger to users.
func (ls *LiquidStaking) SetActive(active bool) error {
	if err := ls.requireOwner(); err != nil {
		return err
	}
	if err := ls.active.Set(active, false); err != nil {
		return err
	}
	logger.Info("liquid staking state changed", "active", active)
	return nil
}

// WhitelistContract adds a delegation contract to the directory.
func (ls *LiquidStaking) WhitelistContract(contract, admin thor.Address, totalStaked, limit *big.Int, nodes, yield uint64) error {
	if err := ls.requireOwner(); err != nil {
		return err
	}
	if totalStaked == nil || limit == nil || totalStaked.Sign() < 0 || limit.Sign() < 0 {
		return reverts.New(reverts.InvalidArgument, "invalid delegation contract capacity")
	}
	if err := ls.directory.Whitelist(contract, directory.NewEntry(admin, totalStaked, limit, nodes, yield)); err != nil {
		return err
	}
	if err := ls.cycle.DirectoryChanged(); err != nil {
		return err
	}
	ls.emit("ContractWhitelisted", contract, map[string]string{"admin": admin.String(), "cap": limit.String()})
	return nil
}

func (ls *LiquidStaking) ChangeAdmin(contract, admin thor.Address) error {
	if err := ls.requireOwner(); err != nil {
		return err
	}
	return ls.directory.ChangeAdmin(contract, admin)
}

// demote moves contract to the directory tail after a failed call.
func (ls *LiquidStaking) demote(contract thor.Address) error {
	if err := ls.directory.Demote(contract); err != nil {
		return err
	}
	return ls.cycle.DirectoryChanged()
}

// SetMaxContracts bounds the directory size. Zero restores the default.
func (ls *LiquidStaking) SetMaxContracts(n uint64) error {
	if err := ls.requireOwner(); err != nil {
		return err
	}
	ls.directory.SetMaxEntries(n)
	return nil
}

// ChangeParams lets the admin of contract publish new capacity, node count and yield.
func (ls *LiquidStaking) ChangeParams(contract thor.Address, totalStaked, limit *big.Int, nodes, yield uint64) error {
	if err := ls.directory.UpdateParams(ls.env.Caller(), contract, totalStaked, limit, nodes, yield); err != nil {
		return err
	}
	if err := ls.cycle.DirectoryChanged(); err != nil {
		return err
	}
	ls.emit("ContractParamsChanged", contract, map[string]string{"cap": limit.String()})
	return nil
}
