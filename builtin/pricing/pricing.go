// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pricing

import (
	"math/big"
	"slices"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/balance"
	"github.com/vechain/restake/builtin/reverts"
	"github.com/vechain/restake/builtin/solidity"
	"github.com/vechain/restake/thor"
)

// MaxDecimals bounds the decimal count of a token so that 10^decimals fits in 256 bits.
const MaxDecimals = 36

var (
	slotPrices = thor.BytesToBytes32([]byte("token-prices"))
	slotTokens = thor.BytesToBytes32([]byte("token-whitelist"))
)

type tokenKey string

func (k tokenKey) Bytes() []byte { return []byte(k) }

// Price converts token amounts into base value: amount * Rate / 10^Decimals.
type Price struct {
	Rate     *big.Int
	Decimals uint8
	Listed   bool
}

// Table is the token whitelist with the price of each token.
// A removed token keeps its last price, so assets delegated before the removal can still be valued.
type Table struct {
	prices *solidity.Mapping[tokenKey, *Price]
	tokens *solidity.Raw[[]string]
}

func New(sctx *solidity.Context) *Table {
	return &Table{
		prices: solidity.NewMapping[tokenKey, *Price](sctx, slotPrices),
		tokens: solidity.NewRaw[[]string](sctx, slotTokens),
	}
}

// IsWhitelisted reports whether token may be deposited. The base token always is.
func (t *Table) IsWhitelisted(token string) (bool, error) {
	if token == balance.BaseToken {
		return true, nil
	}
	p, err := t.prices.Get(tokenKey(token))
	if err != nil {
		return false, err
	}
	return p != nil && p.Listed, nil
}

// RequireWhitelisted fails with UnknownTarget if token is not whitelisted.
func (t *Table) RequireWhitelisted(token string) error {
	ok, err := t.IsWhitelisted(token)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.Newf(reverts.UnknownTarget, "token %s not whitelisted", token)
	}
	return nil
}

func (t *Table) price(token string) (*Price, error) {
	if token == balance.BaseToken {
		return &Price{Rate: big.NewInt(1), Listed: true}, nil
	}
	p, err := t.prices.Get(tokenKey(token))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, reverts.Newf(reverts.UnknownTarget, "token %s has no price", token)
	}
	return p, nil
}

func (t *Table) RateFor(token string) (*big.Int, error) {
	p, err := t.price(token)
	if err != nil {
		return nil, err
	}
	return p.Rate, nil
}

func (t *Table) DecimalsFor(token string) (uint8, error) {
	p, err := t.price(token)
	if err != nil {
		return 0, err
	}
	return p.Decimals, nil
}

// Add whitelists token at the given price.
func (t *Table) Add(token string, rate *big.Int, decimals uint8) error {
	if token == "" || token == balance.BaseToken {
		return reverts.Newf(reverts.InvalidArgument, "invalid token %q", token)
	}
	if rate == nil || rate.Sign() <= 0 {
		return reverts.New(reverts.ZeroAmount, "rate must be positive")
	}
	if decimals > MaxDecimals {
		return reverts.Newf(reverts.InvalidArgument, "decimals above %d", MaxDecimals)
	}
	if _, overflow := uint256.FromBig(rate); overflow {
		return reverts.New(reverts.InvalidArgument, "rate overflows 256 bits")
	}
	old, err := t.prices.Get(tokenKey(token))
	if err != nil {
		return err
	}
	if old != nil && old.Listed {
		return reverts.Newf(reverts.AlreadyWhitelisted, "token %s already whitelisted", token)
	}
	price := &Price{Rate: new(big.Int).Set(rate), Decimals: decimals, Listed: true}
	if old == nil {
		err = t.prices.Insert(tokenKey(token), price)
	} else {
		err = t.prices.Update(tokenKey(token), price)
	}
	if err != nil {
		return err
	}

	tokens, err := t.tokens.Get()
	if err != nil {
		return err
	}
	i, _ := slices.BinarySearch(tokens, token)
	return t.tokens.Set(slices.Insert(tokens, i, token), len(tokens) == 0)
}

// Remove delists token, keeping its price for valuation.
func (t *Table) Remove(token string) error {
	p, err := t.prices.Get(tokenKey(token))
	if err != nil {
		return err
	}
	if p == nil || !p.Listed {
		return reverts.Newf(reverts.UnknownTarget, "unknown token %s", token)
	}
	p.Listed = false
	if err := t.prices.Update(tokenKey(token), p); err != nil {
		return err
	}

	tokens, err := t.tokens.Get()
	if err != nil {
		return err
	}
	if i, found := slices.BinarySearch(tokens, token); found {
		tokens = slices.Delete(tokens, i, i+1)
	}
	return t.tokens.Set(tokens, false)
}

// List returns the whitelisted tokens in lexical order.
func (t *Table) List() ([]string, error) {
	return t.tokens.Get()
}

// ValueOf converts amount of asset into base value.
func (t *Table) ValueOf(asset balance.AssetKey, amount *big.Int) (*big.Int, error) {
	if asset.IsBase() {
		return new(big.Int).Set(amount), nil
	}
	p, err := t.price(asset.Token)
	if err != nil {
		return nil, err
	}
	return convert(amount, p)
}

// ValueOfAll sums the base value of payments.
func (t *Table) ValueOfAll(payments []balance.Payment) (*big.Int, error) {
	total := new(big.Int)
	for _, p := range payments {
		v, err := t.ValueOf(p.Asset, p.Amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, nil
}

func convert(amount *big.Int, p *Price) (*big.Int, error) {
	x, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return nil, errors.Errorf("amount %v out of range", amount)
	}
	rate, _ := uint256.FromBig(p.Rate)
	denom := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(p.Decimals)))

	value, overflow := new(uint256.Int).MulDivOverflow(x, rate, denom)
	if overflow {
		return nil, errors.Errorf("value of %v overflows", amount)
	}
	return value.ToBig(), nil
}
