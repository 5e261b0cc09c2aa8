// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BaseToken is the token name of the native asset.
const BaseToken = "BASE"

// AssetKey identifies a fungible or semi-fungible unit.
// Nonce distinguishes instances of a semi-fungible token, 0 for fungible ones.
type AssetKey struct {
	Token string
	Nonce uint64
}

// BaseAsset is the native asset, valued 1:1.
var BaseAsset = AssetKey{Token: BaseToken}

func Token(token string) AssetKey {
	return AssetKey{Token: token}
}

func (k AssetKey) IsBase() bool {
	return k == BaseAsset
}

// Less orders the base asset first, then by token and nonce.
func (k AssetKey) Less(other AssetKey) bool {
	if k.IsBase() != other.IsBase() {
		return k.IsBase()
	}
	if k.Token != other.Token {
		return k.Token < other.Token
	}
	return k.Nonce < other.Nonce
}

func (k AssetKey) String() string {
	if k.Nonce == 0 {
		return k.Token
	}
	return k.Token + "-" + strconv.FormatUint(k.Nonce, 16)
}

// MarshalText implements encoding.TextMarshaler.
func (k AssetKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, the inverse of String.
func (k *AssetKey) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		return errors.New("empty asset")
	}
	token, nonce, found := strings.Cut(s, "-")
	if !found {
		*k = AssetKey{Token: token}
		return nil
	}
	n, err := strconv.ParseUint(nonce, 16, 64)
	if err != nil {
		return errors.Wrap(err, "asset nonce")
	}
	*k = AssetKey{Token: token, Nonce: n}
	return nil
}

// Payment is an amount of one asset.
type Payment struct {
	Asset  AssetKey
	Amount *big.Int
}

func NewPayment(asset AssetKey, amount *big.Int) Payment {
	return Payment{Asset: asset, Amount: new(big.Int).Set(amount)}
}

// Base creates a payment of the native asset.
func Base(amount *big.Int) Payment {
	return NewPayment(BaseAsset, amount)
}

func (p Payment) String() string {
	return fmt.Sprintf("%v %v", p.Amount, p.Asset)
}
